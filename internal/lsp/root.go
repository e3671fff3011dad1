package lsp

import (
	"os"
	"path/filepath"

	"dpscript/internal/fileuri"
	"dpscript/internal/project"
)

// workspaceFromParams picks the workspace root and folder list announced by
// initialize. The root falls back to the first folder and vice versa.
func workspaceFromParams(params *initializeParams) (root string, folders []string) {
	if params.RootURI != "" {
		root = fileuri.ToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = fileuri.Clean(params.RootPath)
	}
	for _, f := range params.WorkspaceFolders {
		if path := fileuri.ToPath(f.URI); path != "" {
			folders = append(folders, path)
		}
	}
	if root == "" && len(folders) > 0 {
		root = folders[0]
	}
	if len(folders) == 0 && root != "" {
		folders = []string{root}
	}
	return root, folders
}

func (s *Server) defaultConfig() project.Config {
	cfg := project.Default()
	if s.opts.Config != nil {
		cfg = *s.opts.Config
	}
	if s.opts.Mode != "" {
		cfg.Compiler.Mode = s.opts.Mode
	}
	return cfg
}

// resolveConfig loads dpscript.toml above root unless the server was given
// an explicit configuration. It returns the manifest path when one was
// used. On error the defaults are returned alongside it.
func (s *Server) resolveConfig(root string) (project.Config, string, error) {
	if s.opts.Config != nil || root == "" {
		return s.defaultConfig(), "", nil
	}
	manifest, ok, err := project.LoadManifest(resolveStartDir(root))
	if err != nil {
		return s.defaultConfig(), "", err
	}
	if !ok {
		return s.defaultConfig(), "", nil
	}
	cfg := manifest.Config
	if s.opts.Mode != "" {
		cfg.Compiler.Mode = s.opts.Mode
	}
	if err := cfg.Validate(); err != nil {
		return s.defaultConfig(), "", err
	}
	return cfg, manifest.Path, nil
}

func resolveStartDir(path string) string {
	if path == "" {
		return ""
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return path
	}
	return filepath.Dir(path)
}
