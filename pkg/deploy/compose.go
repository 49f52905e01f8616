package deploy

import (
	"context"

	"al.essio.dev/pkg/shellescape"

	"github.com/deckhand-sh/deckhand/pkg/execs"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/remote"
)

func (d *Deployer) callCompose(ctx context.Context, app *manifest.App, cmd string) error {
	_, err := d.host.CallCompose(ctx,
		RemoteComposePath(d.host, app), RemoteEnvPath(d.host, app), cmd)

	return err
}

// Up builds and starts services. With no services given, the whole app comes
// up.
func (d *Deployer) Up(ctx context.Context, app *manifest.App, services ...string) error {
	if len(services) == 0 {
		return d.callCompose(ctx, app, "up --build --detach")
	}

	for _, service := range services {
		if err := d.callCompose(ctx, app, "up --build --detach "+shellescape.Quote(service)); err != nil {
			return err
		}
	}

	return nil
}

// Down stops and removes services. With no services given, the whole app
// goes down.
func (d *Deployer) Down(ctx context.Context, app *manifest.App, services ...string) error {
	if len(services) == 0 {
		return d.callCompose(ctx, app, "down")
	}

	for _, service := range services {
		if err := d.callCompose(ctx, app, "rm --force --stop -v "+shellescape.Quote(service)); err != nil {
			return err
		}
	}

	return nil
}

// Restart restarts services, or the whole app.
func (d *Deployer) Restart(ctx context.Context, app *manifest.App, services ...string) error {
	if len(services) == 0 {
		return d.callCompose(ctx, app, "restart")
	}

	for _, service := range services {
		if err := d.callCompose(ctx, app, "restart "+shellescape.Quote(service)); err != nil {
			return err
		}
	}

	return nil
}

// ExecService runs a command inside a running service container. The command
// is passed through to compose unaltered.
func (d *Deployer) ExecService(ctx context.Context, app *manifest.App, service, command string) error {
	return d.callCompose(ctx, app, "exec "+shellescape.Quote(service)+" "+command)
}

// Logs returns the log output for a service.
func (d *Deployer) Logs(ctx context.Context, app *manifest.App, service string) (string, error) {
	res, err := d.host.CallCompose(ctx,
		RemoteComposePath(d.host, app), RemoteEnvPath(d.host, app),
		"logs "+shellescape.Quote(service))
	if err != nil {
		return "", err
	}

	return res.Stdout, nil
}

// Status lists every container on the host, across all apps.
func (d *Deployer) Status(ctx context.Context) (execs.Result, error) {
	return d.host.Exec(ctx, "docker ps --all", nil, remote.ExecOpts{})
}
