package config

const (
	// TopicAnalysisBatch is the NSQ topic for row-batch analysis tasks.
	TopicAnalysisBatch = "analysis.batch"

	// TopicAnalysisIndex is the NSQ topic for indexing analyzed rows into
	// the vector store.
	TopicAnalysisIndex = "analysis.index"
)
