package commands

import (
	"strings"

	"github.com/deckhand-sh/deckhand/pkg/deckerrors"
	"github.com/deckhand-sh/deckhand/pkg/manifest"
	"github.com/deckhand-sh/deckhand/pkg/names"
)

// target addresses an app, or one service within it, as "app" or
// "app.service".
type target struct {
	App     string
	Service string
}

func parseTarget(raw string) (target, error) {
	app, service, _ := strings.Cut(raw, ".")

	name, err := names.Normalise(app)
	if err != nil {
		return target{}, deckerrors.Usagef("invalid target %q: %v", raw, err)
	}

	return target{App: name, Service: service}, nil
}

// appServices pairs an app with the services selected for it. An empty
// Services list selects all of the app's services.
type appServices struct {
	App      *manifest.App
	Services []string
}

// resolveTargets expands raw target arguments against the manifest,
// preserving first-seen app order. A bare app target selects all of its
// services, regardless of other targets naming the same app.
func resolveTargets(m *manifest.Manifest, raws []string, all bool) ([]appServices, error) {
	if all {
		apps := m.Apps()

		out := make([]appServices, 0, len(apps))
		for _, app := range apps {
			out = append(out, appServices{App: app})
		}

		return out, nil
	}

	if len(raws) == 0 {
		return nil, deckerrors.Usagef("must specify --all or one or more targets")
	}

	type selection struct {
		appServices
		whole bool
	}

	var order []string

	selected := make(map[string]*selection)

	for _, raw := range raws {
		tgt, err := parseTarget(raw)
		if err != nil {
			return nil, err
		}

		app, err := m.App(tgt.App)
		if err != nil {
			return nil, err
		}

		entry, ok := selected[app.Name]
		if !ok {
			entry = &selection{appServices: appServices{App: app}}
			selected[app.Name] = entry
			order = append(order, app.Name)
		}

		if tgt.Service == "" {
			entry.whole = true
		} else {
			entry.Services = append(entry.Services, tgt.Service)
		}
	}

	out := make([]appServices, 0, len(order))

	for _, name := range order {
		entry := selected[name]
		if entry.whole {
			entry.Services = nil
		}

		out = append(out, entry.appServices)
	}

	return out, nil
}
