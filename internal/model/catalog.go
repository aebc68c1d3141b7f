package model

// WorkStatus is the publication status of a work.
type WorkStatus string

const (
	WorkStatusOngoing   WorkStatus = "ongoing"
	WorkStatusCompleted WorkStatus = "completed"
	WorkStatusHiatus    WorkStatus = "hiatus"
	WorkStatusCancelled WorkStatus = "cancelled"
)

func (s WorkStatus) IsValid() bool {
	switch s {
	case WorkStatusOngoing, WorkStatusCompleted, WorkStatusHiatus, WorkStatusCancelled:
		return true
	}
	return false
}

// WorkKind distinguishes the origin tradition of a work.
type WorkKind string

const (
	WorkKindManga  WorkKind = "manga"
	WorkKindManhwa WorkKind = "manhwa"
	WorkKindManhua WorkKind = "manhua"
)

func (k WorkKind) IsValid() bool {
	switch k {
	case WorkKindManga, WorkKindManhwa, WorkKindManhua:
		return true
	}
	return false
}

// CatalogEntry is the normalized, source-agnostic form of one work as returned
// by a single fetch pass. It is never persisted directly: it is either dropped
// as a duplicate or converted into pending manga/chapter rows.
type CatalogEntry struct {
	Title         string
	Description   string
	Author        string
	Artist        string
	Genres        []string
	Status        WorkStatus
	Kind          WorkKind
	CoverURL      string
	SourceID      string
	SourceMangaID string
	Chapters      []ChapterEntry
}

// ChapterEntry is the normalized form of one chapter. Number is floating point
// to support sub-chapters such as 10.5.
type ChapterEntry struct {
	Number          float64
	Title           string
	Description     string
	Pages           []string
	SourceChapterID string
}
