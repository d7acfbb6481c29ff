package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/assetflow-backend/pkg/config"
	"github.com/angelmondragon/assetflow-backend/pkg/logger"
)

const metadataTimeout = 10 * time.Second

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errDatasetRequired   = errors.New("bigquery dataset is required")
	errNoTables          = errors.New("at least one bigquery table is required")
	errNotInitialized    = errors.New("bigquery client not initialized")
)

// TableSpec describes a table the client writes to. When Schema is set and
// creation is enabled, a missing table is created, partitioned by day on
// PartitionField.
type TableSpec struct {
	Name           string
	Schema         bigquery.Schema
	PartitionField string
}

// Client wraps one dataset. Tables are checked, or created, at startup so a
// misconfigured worker fails before it acks any message.
type Client struct {
	client  *bigquery.Client
	dataset *bigquery.Dataset
	tables  map[string]TableSpec
	create  bool
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger, specs ...TableSpec) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := indexSpecs(specs)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{client: bq, dataset: bq.Dataset(datasetID), tables: tables, create: cfg.CreateTables}
	if err := c.ensureTables(ctx, logg); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": len(tables)}), "bigquery client initialized")
	}
	return c, nil
}

func indexSpecs(specs []TableSpec) (map[string]TableSpec, error) {
	tables := make(map[string]TableSpec, len(specs))
	for _, spec := range specs {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			continue
		}
		tables[spec.Name] = spec
	}
	if len(tables) == 0 {
		return nil, errNoTables
	}
	return tables, nil
}

func (c *Client) ensureTables(ctx context.Context, logg *logger.Logger) error {
	if c == nil || c.dataset == nil {
		return errNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}

	for name, spec := range c.tables {
		_, err := c.dataset.Table(name).Metadata(ctx)
		switch {
		case err == nil:
			continue
		case !isNotFound(err):
			return fmt.Errorf("checking table %q: %w", name, err)
		case !c.create || len(spec.Schema) == 0:
			return fmt.Errorf("table %q does not exist", name)
		}
		if err := c.dataset.Table(name).Create(ctx, tableMetadata(spec)); err != nil {
			return fmt.Errorf("creating table %q: %w", name, err)
		}
		if logg != nil {
			logg.Warn(logg.WithField(ctx, "table", name), "bigquery table created")
		}
	}
	return nil
}

func tableMetadata(spec TableSpec) *bigquery.TableMetadata {
	meta := &bigquery.TableMetadata{Name: spec.Name, Schema: spec.Schema}
	if spec.PartitionField != "" {
		meta.TimePartitioning = &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: spec.PartitionField,
		}
	}
	return meta
}

// Ping re-checks dataset and table metadata without creating anything.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errNotInitialized
	}
	create := c.create
	c.create = false
	defer func() { c.create = create }()
	return c.ensureTables(ctx, nil)
}

// InsertRows streams rows into a table registered at construction.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.client == nil {
		return errNotInitialized
	}
	table = strings.TrimSpace(table)
	if _, ok := c.tables[table]; !ok {
		return fmt.Errorf("table %q is not registered", table)
	}
	if len(rows) == 0 {
		return nil
	}
	return c.dataset.Table(table).Inserter().Put(ctx, rows)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
