package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"twaforge/internal/app"
	"twaforge/internal/domain"
	"twaforge/internal/view"
	"twaforge/internal/wizard"
)

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Run the interactive conversion wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				r := &repl{ctl: a.Controller, in: os.Stdin, out: os.Stdout, copy: clipboard.WriteAll}
				return r.run(ctx)
			})
		},
	}
}

const replHelp = `commands:
  start                  leave the welcome screen
  url <address>          set the PWA URL
  analyze                analyze the URL
  set <field> <value>    edit a detail (appName, packageName, versionName,
                         versionCode, orientation, minSdk, iconUrl, splashColor)
  next | back            move between steps
  build                  generate the Android project
  copy <artifact>        copy manifest, gradle or assetlinks to the clipboard
  save <dir>             write all artifacts into dir
  restart | resume       start over / retry after setting a key
  show | help | quit`

// repl drives one wizard over a line-oriented terminal.
type repl struct {
	ctl   *wizard.Controller
	in    io.Reader
	out   io.Writer
	copy  func(string) error
	state wizard.State
}

func (r *repl) run(ctx context.Context) error {
	r.state = r.ctl.New()
	r.show()
	sc := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "> ")
		if !sc.Scan() {
			fmt.Fprintln(r.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := r.exec(ctx, line); err != nil {
			fmt.Fprintln(r.out, "error:", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) show() {
	renderView(r.out, view.Render(r.state, r.ctl.HistoryList()))
}

func (r *repl) exec(ctx context.Context, line string) error {
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	var (
		next wizard.State
		err  error
	)
	switch verb {
	case "help":
		fmt.Fprintln(r.out, replHelp)
		return nil
	case "show":
		r.show()
		return nil
	case "copy":
		return r.copyArtifact(rest)
	case "save":
		return r.save(rest)
	case "start":
		next, err = r.ctl.Start(ctx, "", r.state)
	case "url":
		next, err = r.ctl.SetURL(ctx, "", r.state, rest)
	case "analyze":
		if rest != "" {
			if next, err = r.ctl.SetURL(ctx, "", r.state, rest); err != nil {
				return err
			}
			r.state = next
		}
		fmt.Fprintln(r.out, "analyzing...")
		next, err = r.ctl.SubmitURL(ctx, "", r.state)
	case "set":
		field, value, _ := strings.Cut(rest, " ")
		patch, perr := parsePatch(field, strings.TrimSpace(value))
		if perr != nil {
			return perr
		}
		next, err = r.ctl.UpdateConfig(ctx, "", r.state, patch)
	case "next":
		next, err = r.ctl.Next(ctx, "", r.state)
	case "back":
		next, err = r.ctl.Back(ctx, "", r.state)
	case "build":
		fmt.Fprintln(r.out, "building...")
		next, err = r.ctl.Build(ctx, "", r.state)
	case "restart":
		next, err = r.ctl.Restart(ctx, "", r.state)
	case "resume":
		next, err = r.ctl.Resume(ctx, "", r.state)
	default:
		return fmt.Errorf("unknown command %q; type help", verb)
	}
	if err != nil {
		return describe(err)
	}
	r.state = next
	r.show()
	return nil
}

func (r *repl) result() (domain.BuildResult, error) {
	if r.state.Result == nil {
		return domain.BuildResult{}, errors.New("nothing built yet")
	}
	return *r.state.Result, nil
}

func (r *repl) copyArtifact(name string) error {
	res, err := r.result()
	if err != nil {
		return err
	}
	a, ok := view.Find(res, name)
	if !ok {
		return fmt.Errorf("unknown artifact %q (manifest, gradle, assetlinks)", name)
	}
	if err := r.copy(a.Content); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	fmt.Fprintf(r.out, "copied %s\n", a.Filename)
	return nil
}

func (r *repl) save(dir string) error {
	res, err := r.result()
	if err != nil {
		return err
	}
	paths, err := saveArtifacts(dir, res)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(r.out, "wrote", p)
	}
	return nil
}

// describe turns wizard sentinels into terminal hints.
func describe(err error) error {
	switch {
	case errors.Is(err, wizard.ErrCredentialRequired):
		return fmt.Errorf("%w; set a key then type resume", err)
	case errors.Is(err, wizard.ErrInvalidTransition):
		return fmt.Errorf("%w; type help for the available commands", err)
	}
	return err
}

func saveArtifacts(dir string, res domain.BuildResult) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var paths []string
	for _, a := range view.Artifacts(res) {
		p := filepath.Join(dir, a.Filename)
		if err := os.WriteFile(p, []byte(a.Content), 0o644); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// parsePatch builds a one-field config patch from terminal input.
func parsePatch(field, value string) (wizard.ConfigPatch, error) {
	var p wizard.ConfigPatch
	atoi := func() (*int, error) {
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", field)
		}
		return &n, nil
	}
	var err error
	switch field {
	case "appName":
		p.AppName = &value
	case "packageName":
		p.PackageName = &value
	case "versionName":
		p.VersionName = &value
	case "versionCode":
		p.VersionCode, err = atoi()
	case "minSdk":
		p.MinSdk, err = atoi()
	case "orientation":
		var o domain.Orientation
		o, err = domain.ParseOrientation(value)
		p.Orientation = &o
	case "iconUrl":
		p.IconURL = &value
	case "splashColor":
		p.SplashColor = &value
	default:
		err = fmt.Errorf("unknown field %q", field)
	}
	return p, err
}
