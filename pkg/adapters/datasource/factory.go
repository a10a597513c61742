package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DatasourceAdapterFactory creates adapters from the registry.
type DatasourceAdapterFactory interface {
	// Open connects to a datasource of the given type and verifies the connection.
	Open(ctx context.Context, dsType string, config map[string]any) (Datasource, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []DatasourceAdapterInfo
}

type registryFactory struct {
	logger *zap.Logger
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
func NewDatasourceAdapterFactory(logger *zap.Logger) DatasourceAdapterFactory {
	return &registryFactory{logger: logger}
}

func (f *registryFactory) Open(ctx context.Context, dsType string, config map[string]any) (Datasource, error) {
	factory := GetFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("unsupported datasource type: %s (not compiled in)", dsType)
	}

	ds, err := factory(ctx, config, f.logger.Named("datasource").With(zap.String("type", dsType)))
	if err != nil {
		return nil, err
	}

	if err := ds.TestConnection(ctx); err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("test %s connection: %w", dsType, err)
	}
	return ds, nil
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements DatasourceAdapterFactory at compile time.
var _ DatasourceAdapterFactory = (*registryFactory)(nil)
