package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/matheus3301/wppbridge/internal/config"
	"github.com/matheus3301/wppbridge/internal/instance"
	"github.com/matheus3301/wppbridge/internal/lock"
	"github.com/urfave/cli/v2"
)

type instanceInfo struct {
	Name    string `json:"name"`
	Path    string `json:"path"`
	Running bool   `json:"running"`
	PID     int    `json:"pid,omitempty"`
	Since   string `json:"since,omitempty"`
}

var instancesCommand = &cli.Command{
	Name:   "instances",
	Usage:  "List local instances and whether a daemon serves them",
	Action: cmdInstances,
}

func cmdInstances(ctx *cli.Context) error {
	infos, err := listInstances(filepath.Join(instance.BaseDir(), "instances"))
	if err != nil {
		return err
	}
	return printOrJSON(ctx, infos, func() {
		if len(infos) == 0 {
			fmt.Println("No instances found.")
			return
		}
		for _, in := range infos {
			state := "stopped"
			if in.Running {
				state = fmt.Sprintf("running, pid %d", in.PID)
			}
			fmt.Printf("%-20s %s (%s)\n", in.Name, in.Path, state)
		}
	})
}

// listInstances reports every valid instance directory under root. A lock
// file whose PID is gone is reported as stopped.
func listInstances(root string) ([]instanceInfo, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var infos []instanceInfo
	for _, e := range entries {
		if !e.IsDir() || instance.ValidateName(e.Name()) != nil {
			continue
		}
		dir := filepath.Join(root, e.Name())
		info := instanceInfo{Name: e.Name(), Path: dir}
		if h, ok := lock.ReadHolder(dir); ok && h.PID > 0 && processAlive(h.PID) {
			info.Running, info.PID = true, h.PID
			if !h.Since.IsZero() {
				info.Since = h.Since.Format(time.RFC3339)
			}
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

var initConfigCommand = &cli.Command{
	Name:  "init-config",
	Usage: "Write a default config file",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "overwrite an existing config",
		},
	},
	Action: cmdInitConfig,
}

func cmdInitConfig(ctx *cli.Context) error {
	path := instance.ConfigPath()
	if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	cfg := config.Default()
	cfg.DefaultInstance = getInstance(ctx)
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}
