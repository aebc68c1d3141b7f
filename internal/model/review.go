package model

const (
	ReviewContentManga   = "manga"
	ReviewContentChapter = "chapter"

	ReviewSubmitterSystem = "system"
)

// ReviewQueueItem is one pending/approved/rejected submission. Rows are never
// deleted automatically; history is part of the audit trail.
type ReviewQueueItem struct {
	ID          string `json:"id" db:"id"`
	ContentKind string `json:"content_kind" db:"content_kind"`
	ContentID   string `json:"content_id" db:"content_id"`
	Priority    int    `json:"priority" db:"priority"`
	SubmittedBy string `json:"submitted_by" db:"submitted_by"`
	Status      string `json:"status" db:"status"`
	ReviewerID  string `json:"reviewer_id" db:"reviewer_id"`
	Notes       string `json:"notes" db:"notes"`
	Ctime       int64  `json:"ctime" db:"ctime"`
	Mtime       int64  `json:"mtime" db:"mtime"`
}

// ReviewItemDetail bundles a queue item with the content row it points at so
// a reviewer can decide without a second lookup. CoverLink is the mirrored
// cover of the manga under review, when one exists.
type ReviewItemDetail struct {
	Item      *ReviewQueueItem `json:"item"`
	Manga     *Manga           `json:"manga,omitempty"`
	Chapter   *Chapter         `json:"chapter,omitempty"`
	CoverLink string           `json:"cover_link,omitempty"`
}

type ReviewStats struct {
	Pending       int64 `json:"pending"`
	Approved      int64 `json:"approved"`
	Rejected      int64 `json:"rejected"`
	PendingManga  int64 `json:"pending_manga"`
	PendingChapts int64 `json:"pending_chapters"`
}
