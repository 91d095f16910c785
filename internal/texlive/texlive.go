// Package texlive compile-checks emitted LaTeX fragments inside a
// TeX Live container. The paper a fragment eventually lands in is not
// ours, but "does this table even compile" is answerable locally and
// catches escaping bugs before a co-author does.
package texlive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/mount"
	"github.com/moby/moby/client"
)

const (
	// DefaultImage is the stock TeX Live image with latexmk.
	DefaultImage = "texlive/texlive:latest"

	harnessName = "check.tex"
	buildDir    = ".check"
)

// Opts configures one compile check.
type Opts struct {
	Image   string
	Dir     string // output directory holding the fragments, bind-mounted
	Timeout time.Duration
	UserID  string // run as this uid so build artifacts are not root-owned
}

// Result is the outcome of one compile run.
type Result struct {
	ExitCode int
	TimedOut bool
	Duration time.Duration
	Log      string
}

// Passed reports a clean compile.
func (r *Result) Passed() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Fragments lists the .tex fragments under dir that a harness should
// pull in: tables and winner sections, not the assembled report that
// already inputs them.
func Fragments(dir string) ([]string, error) {
	var rels []string
	for _, sub := range []string{"tables", "sections"} {
		matches, err := filepath.Glob(filepath.Join(dir, sub, "*.tex"))
		if err != nil {
			return nil, fmt.Errorf("listing %s fragments: %w", sub, err)
		}
		for _, m := range matches {
			rel, err := filepath.Rel(dir, m)
			if err != nil {
				return nil, fmt.Errorf("relativizing %s: %w", m, err)
			}
			rels = append(rels, filepath.ToSlash(rel))
		}
	}
	sort.Strings(rels)
	return rels, nil
}

// WriteHarness writes a minimal standalone document into dir that
// inputs every fragment. Returns the harness file name; the caller
// removes it after the compile.
func WriteHarness(dir string, fragments []string) (string, error) {
	var b strings.Builder
	b.WriteString("\\documentclass{article}\n")
	b.WriteString("\\usepackage{booktabs}\n")
	b.WriteString("\\usepackage{graphicx}\n")
	b.WriteString("\\usepackage{amsmath}\n")
	b.WriteString("\\begin{document}\n")
	for _, f := range fragments {
		fmt.Fprintf(&b, "\\input{%s}\n", strings.TrimSuffix(f, ".tex"))
	}
	b.WriteString("\\end{document}\n")
	path := filepath.Join(dir, harnessName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("writing harness: %w", err)
	}
	return harnessName, nil
}

// Compile runs latexmk over the harness in a container with dir
// mounted at /workspace. Build artifacts land in dir/.check.
func Compile(ctx context.Context, opts *Opts) (*Result, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("creating docker client: %w", err)
	}
	defer cli.Close()

	image := opts.Image
	if image == "" {
		image = DefaultImage
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	absDir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", opts.Dir, err)
	}

	initTrue := true
	hostCfg := &container.HostConfig{
		Mounts: []mount.Mount{{
			Type:   mount.TypeBind,
			Source: absDir,
			Target: "/workspace",
		}},
		Init: &initTrue,
	}
	containerCfg := &container.Config{
		Image: image,
		Cmd: []string{
			"latexmk", "-pdf", "-interaction=nonstopmode", "-halt-on-error",
			"-output-directory=" + buildDir, harnessName,
		},
		WorkingDir: "/workspace",
		Labels:     map[string]string{"paper-prep": "true"},
	}
	if opts.UserID != "" {
		containerCfg.User = opts.UserID
	}

	createResp, err := cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     containerCfg,
		HostConfig: hostCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("creating container: %w", err)
	}
	containerID := createResp.ID
	defer func() {
		cli.ContainerRemove(context.Background(), containerID, client.ContainerRemoveOptions{Force: true})
	}()

	start := time.Now()
	if _, err := cli.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		return nil, fmt.Errorf("starting container: %w", err)
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	waitResult := cli.ContainerWait(timeoutCtx, containerID, client.ContainerWaitOptions{
		Condition: container.WaitConditionNotRunning,
	})
	for {
		select {
		case err := <-waitResult.Error:
			if err != nil {
				cli.ContainerKill(context.Background(), containerID, client.ContainerKillOptions{Signal: "SIGKILL"})
				return &Result{
					ExitCode: 124,
					TimedOut: true,
					Duration: time.Since(start),
					Log:      containerLogs(cli, containerID),
				}, nil
			}
			// nil means nothing failed yet; keep waiting for the result
		case status := <-waitResult.Result:
			return &Result{
				ExitCode: int(status.StatusCode),
				Duration: time.Since(start),
				Log:      containerLogs(cli, containerID),
			}, nil
		}
	}
}

func containerLogs(cli *client.Client, containerID string) string {
	logReader, err := cli.ContainerLogs(context.Background(), containerID, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       "60",
	})
	if err != nil || logReader == nil {
		return ""
	}
	defer logReader.Close()
	data, _ := io.ReadAll(logReader)
	return string(data)
}

// Check runs the whole flow over an output directory: collect
// fragments, write the harness, compile, clean up.
func Check(ctx context.Context, opts *Opts) (*Result, error) {
	fragments, err := Fragments(opts.Dir)
	if err != nil {
		return nil, err
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("no .tex fragments under %s", opts.Dir)
	}
	if _, err := WriteHarness(opts.Dir, fragments); err != nil {
		return nil, err
	}
	defer os.Remove(filepath.Join(opts.Dir, harnessName))
	defer os.RemoveAll(filepath.Join(opts.Dir, buildDir))
	return Compile(ctx, opts)
}
