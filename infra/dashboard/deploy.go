// Package dashboard deploys the static web dashboard into the www
// directory served by Home Assistant. HTML asset references get a version
// query parameter so browsers pick up new deployments immediately.
package dashboard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/homewatt/homewatt/core/state"
	"github.com/homewatt/homewatt/infra/logger"
)

// Config locates the dashboard sources and deployment target.
type Config struct {
	SourceDir string `json:"source_dir"`
	TargetDir string `json:"target_dir"`
	Enabled   bool   `json:"enabled"`
}

var versionParam = regexp.MustCompile(`\?v=\d+`)

// Deployer copies dashboard files and generates the entity map script.
type Deployer struct {
	cfg Config
	log logger.Logger
	now func() time.Time
}

// NewDeployer creates a Deployer.
func NewDeployer(cfg Config) *Deployer {
	return &Deployer{cfg: cfg, log: logger.New("dashboard"), now: time.Now}
}

// Deploy copies all files from the source directory into the target
// directory, rewrites cache-buster parameters in HTML files and writes
// entities.js describing the configured entity mapping.
func (d *Deployer) Deploy(entities state.EntityMap) error {
	if d.cfg.SourceDir == "" || d.cfg.TargetDir == "" {
		return fmt.Errorf("dashboard: source_dir and target_dir required")
	}
	if err := os.MkdirAll(d.cfg.TargetDir, 0755); err != nil {
		return err
	}
	version := strconv.FormatInt(d.now().Unix(), 10)
	err := filepath.Walk(d.cfg.SourceDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(d.cfg.SourceDir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(d.cfg.TargetDir, rel)
		if info.IsDir() {
			return os.MkdirAll(dst, 0755)
		}
		if strings.HasSuffix(path, ".html") {
			return d.copyHTML(path, dst, version)
		}
		return copyFile(path, dst)
	})
	if err != nil {
		return err
	}
	if err := d.writeEntities(entities); err != nil {
		return err
	}
	d.log.Infof("deployed dashboard to %s (version %s)", d.cfg.TargetDir, version)
	return nil
}

// copyHTML rewrites every ?v=<n> asset reference to the current version.
func (d *Deployer) copyHTML(src, dst, version string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	out := versionParam.ReplaceAll(data, []byte("?v="+version))
	return os.WriteFile(dst, out, 0644)
}

// writeEntities generates entities.js so the dashboard queries the same
// entity ids the manager reads.
func (d *Deployer) writeEntities(entities state.EntityMap) error {
	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}
	content := "const ENTITIES = " + string(data) + ";\n"
	return os.WriteFile(filepath.Join(d.cfg.TargetDir, "entities.js"), []byte(content), 0644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
