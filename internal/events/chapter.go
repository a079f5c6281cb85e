package events

// Event type constants
const (
	EventTitleAdded            = "title.added"
	EventTitleUpdated          = "title.updated"
	EventTitleRemoved          = "title.removed"
	EventTitleChecked          = "title.checked"
	EventMetadataUpdated       = "title.metadata_updated"
	EventChapterDownloaded     = "chapter.downloaded"
	EventChapterDownloadFailed = "chapter.download_failed"
	EventChapterRemoved        = "chapter.removed"
	EventOutOfSyncFlagged      = "outofsync.flagged"
)

// TitleAdded is emitted when a title starts being tracked.
type TitleAdded struct {
	BaseEvent
	Name     string `json:"name"`
	Source   string `json:"source"`
	Interval string `json:"interval"`
}

// TitleUpdated is emitted when a title's source, interval or URL changes.
type TitleUpdated struct {
	BaseEvent
	Name     string `json:"name"`
	Source   string `json:"source"`
	Interval string `json:"interval"`
}

// TitleRemoved is emitted after a title and its chapters are deleted.
type TitleRemoved struct {
	BaseEvent
	Name         string `json:"name"`
	LibraryRoot  string `json:"library_root"`
	FilesRemoved bool   `json:"files_removed"`
}

// MetadataUpdated is emitted after a title's archive metadata is rewritten.
type MetadataUpdated struct {
	BaseEvent
	Name string `json:"name"`
}

// TitleChecked summarizes one reconciliation run.
type TitleChecked struct {
	BaseEvent
	Name     string `json:"name"`
	RunID    string `json:"run_id"`
	Skipped  bool   `json:"skipped"`
	Missing  []int  `json:"missing,omitempty"` // 0-based indices queued for download
	Flagged  int    `json:"flagged"`
	Deleted  int    `json:"deleted"`
	Inserted int    `json:"inserted"`
}

// ChapterDownloaded is emitted after a downloaded chapter is recorded.
// It drives notifications and integration refreshes.
type ChapterDownloaded struct {
	BaseEvent
	TitleID     int64   `json:"title_id"`
	Title       string  `json:"title"`
	Source      string  `json:"source"`
	URL         *string `json:"url,omitempty"`
	LibraryRoot string  `json:"library_root"`
	Index       int     `json:"index"`
	FileName    string  `json:"file_name"`
	SizeBytes   int64   `json:"size_bytes"`
}

// ChapterDownloadFailed is emitted when a download attempt fails.
type ChapterDownloadFailed struct {
	BaseEvent
	Title     string `json:"title"`
	Index     int    `json:"index"`
	Reason    string `json:"reason"`
	Retryable bool   `json:"retryable"`
}

// ChapterRemoved is emitted when the out-of-sync fixer deletes a chapter.
type ChapterRemoved struct {
	BaseEvent
	TitleID  int64  `json:"title_id"`
	Index    int    `json:"index"`
	FileName string `json:"file_name"`
}

// OutOfSyncFlagged is emitted when a check flags chapters whose file name
// no longer matches the source.
type OutOfSyncFlagged struct {
	BaseEvent
	Name       string  `json:"name"`
	ChapterIDs []int64 `json:"chapter_ids"`
}
