package remote

import (
	"context"

	"github.com/deckhand-sh/deckhand/pkg/gitsource"
)

// FetchRepo clones or updates a repository in a directory on the host,
// mirroring the local shallow-fetch strategy: init once, fetch the ref with
// depth 1, check it out, and hard-reset branches to the remote tip.
func (h *Host) FetchRepo(ctx context.Context, dir, url, ref string) error {
	exists, err := h.Exists(ctx, dir)
	if err != nil {
		return err
	}

	in := ExecOpts{Cwd: dir}

	if !exists {
		if err := h.MkDir(ctx, dir); err != nil {
			return err
		}

		if _, err := h.Exec(ctx, "git init", nil, in); err != nil {
			return err
		}

		if _, err := h.Exec(ctx, "git remote add origin {url}", map[string]any{"url": url}, in); err != nil {
			return err
		}
	}

	if ref == "" {
		res, err := h.Exec(ctx, "git remote show origin", nil, ExecOpts{
			Cwd:      dir,
			Expected: "HEAD branch:",
		})
		if err != nil {
			return err
		}

		ref, err = gitsource.ParseRemoteHead(res.Stdout)
		if err != nil {
			return err
		}
	}

	args := map[string]any{"ref": ref}

	if _, err := h.Exec(ctx, "git fetch origin {ref} --depth=1", args, in); err != nil {
		return err
	}

	if _, err := h.Exec(ctx, "git checkout {ref}", args, in); err != nil {
		return err
	}

	// Branches track origin and follow its tip; a pinned commit stays put.
	res, err := h.Exec(ctx, "git rev-parse --abbrev-ref --verify {ref}@{{u}}", args, ExecOpts{
		Cwd:          dir,
		AllowFailure: true,
	})
	if err != nil {
		return err
	}

	if res.OK() {
		if _, err := h.Exec(ctx, "git reset --hard origin/{ref}", args, in); err != nil {
			return err
		}
	}

	return nil
}
