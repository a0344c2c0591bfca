// Package domain defines the data model shared by every dapipe component:
// extracted graphs, pipelines and their run statistics, queued pipeline
// records, monitoring counters and bridge messages.
package domain
