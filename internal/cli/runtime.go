package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-mapping/adapters/gologger"
	"github.com/goliatone/go-mapping/core"
	sqlstore "github.com/goliatone/go-mapping/store/sql"
	persistence "github.com/goliatone/go-persistence-bun"
	"gopkg.in/yaml.v3"
)

func (o *RootOptions) clientConfig() sqlstore.ClientConfig {
	return sqlstore.ClientConfig{Driver: o.Driver, DSN: o.DSN}
}

// openService opens and migrates the rule database and builds a mapping
// service backed by it. The returned close func releases the connection.
func openService(ctx context.Context, opts *RootOptions) (*core.Service, func(), error) {
	client, err := sqlstore.OpenAndMigrate(ctx, opts.clientConfig())
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "open rule database", err)
	}
	closeClient := func() { _ = client.Close() }

	serviceOpts := append(gologger.ServiceOptions("fieldmap", nil, nil),
		core.WithPersistenceClient(client),
		core.WithRepositoryFactory(sqlstore.NewRepositoryFactory()),
	)
	if opts.ConfigPath != "" {
		values, loadErr := loadConfigFile(opts.ConfigPath)
		if loadErr != nil {
			closeClient()
			return nil, nil, WrapExitError(ExitCommandError, "load config", loadErr)
		}
		serviceOpts = append(serviceOpts,
			core.WithConfigProvider(core.NewCfgxConfigProvider(core.NewStaticConfigLoader(values))))
	}

	// Only the service name is pinned at runtime so file values take effect.
	svc, err := core.Setup(core.Config{ServiceName: "fieldmap"}, serviceOpts...)
	if err != nil {
		closeClient()
		return nil, nil, WrapExitError(ExitCommandError, "build mapping service", err)
	}
	return svc, closeClient, nil
}

func openClient(ctx context.Context, opts *RootOptions) (*persistence.Client, error) {
	client, err := sqlstore.OpenAndMigrate(ctx, opts.clientConfig())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open rule database", err)
	}
	return client, nil
}

func loadConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return values, nil
}
