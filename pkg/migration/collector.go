package migration

import (
	"context"
)

// SKUFeatureQuery lists the edition-restricted features persisted in the current database.
const SKUFeatureQuery = "SELECT feature_name FROM sys.dm_db_persisted_sku_features"

// Querier runs a query in the context of a database and returns each row keyed by column name.
type Querier interface {
	RunQuery(ctx context.Context, query, database string) ([]map[string]string, error)
}

// Collector returns the persisted features of one database.
type Collector interface {
	CollectFeatures(ctx context.Context, database string) (FeatureSet, error)
}

// FeatureCollector reads features through a Querier bound to the source server.
type FeatureCollector struct {
	Server  string
	Querier Querier
}

// NewFeatureCollector creates a collector for the named server.
func NewFeatureCollector(server string, q Querier) *FeatureCollector {
	return &FeatureCollector{Server: server, Querier: q}
}

// CollectFeatures returns the features of database. No rows yields an empty,
// non-nil set. Query failures are returned as *CollectionError.
func (c *FeatureCollector) CollectFeatures(ctx context.Context, database string) (FeatureSet, error) {
	return CollectFeatures(ctx, c.Querier, c.Server, database)
}

// CollectFeatures issues SKUFeatureQuery against database through q.
func CollectFeatures(ctx context.Context, q Querier, server, database string) (FeatureSet, error) {
	rows, err := q.RunQuery(ctx, SKUFeatureQuery, database)
	if err != nil {
		return nil, &CollectionError{Server: server, Database: database, Cause: err}
	}

	features := make(FeatureSet, 0, len(rows))
	for _, row := range rows {
		features = append(features, row["feature_name"])
	}
	return features, nil
}
