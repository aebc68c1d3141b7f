package model

const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

type Manga struct {
	ID             string     `json:"id" db:"id"`
	Title          string     `json:"title" db:"title"`
	Description    string     `json:"description" db:"description"`
	Author         string     `json:"author" db:"author"`
	Artist         string     `json:"artist" db:"artist"`
	Genres         []string   `json:"genres" db:"-"`
	Status         WorkStatus `json:"status" db:"status"`
	Kind           WorkKind   `json:"kind" db:"kind"`
	CoverURL       string     `json:"cover_url" db:"cover_url"`
	CoverKey       string     `json:"cover_key" db:"cover_key"`
	SourceID       string     `json:"source_id" db:"source_id"`
	SourceMangaID  string     `json:"source_manga_id" db:"source_manga_id"`
	ApprovalStatus string     `json:"approval_status" db:"approval_status"`
	Ctime          int64      `json:"ctime" db:"ctime"`
	Mtime          int64      `json:"mtime" db:"mtime"`
}

type Chapter struct {
	ID              string   `json:"id" db:"id"`
	MangaID         string   `json:"manga_id" db:"manga_id"`
	Number          float64  `json:"number" db:"number"`
	Title           string   `json:"title" db:"title"`
	Description     string   `json:"description" db:"description"`
	Pages           []string `json:"pages" db:"-"`
	SourceChapterID string   `json:"source_chapter_id" db:"source_chapter_id"`
	ApprovalStatus  string   `json:"approval_status" db:"approval_status"`
	Ctime           int64    `json:"ctime" db:"ctime"`
	Mtime           int64    `json:"mtime" db:"mtime"`
}
