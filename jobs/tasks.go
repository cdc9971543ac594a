package jobs

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogReindex rebuilds the sales index after sale history changes.
	TaskCatalogReindex = "catalog:reindex"
)
