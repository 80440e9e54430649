// Package indexer defines the records, outcomes and collaborator interfaces
// shared by the crawl pipeline, the storage backends and the TF-IDF
// aggregator.
package indexer
