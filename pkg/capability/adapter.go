package capability

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"reconpipe/internal/config"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/logger"
	"reconpipe/pkg/runner"
)

// Placeholders substituted into configured tool arguments per invocation.
const (
	tokenDomain = "{{domain}}"
	tokenInput  = "{{input}}"
	tokenOutput = "{{output}}"
)

// Adapter invokes the external tools configured for each capability and
// parses their output into typed records. One adapter serves one scan and
// keeps its scratch files inside that scan's workspace directory.
type Adapter struct {
	cfg     *config.PipelineConfig
	runner  runner.CommandRunner
	workdir string
	logger  *logger.Logger
}

func NewAdapter(cfg *config.PipelineConfig, cmdRunner runner.CommandRunner, workdir string) *Adapter {
	return &Adapter{
		cfg:     cfg,
		runner:  cmdRunner,
		workdir: workdir,
		logger:  logger.NewLogger(logrus.InfoLevel),
	}
}

// Available reports whether at least one tool backing the capability is
// installed. A missing capability degrades the stage to an empty result, it
// never aborts the pipeline.
func (a *Adapter) Available(cap Capability) error {
	tools := a.tools(cap)
	if len(tools) == 0 {
		return fmt.Errorf("%w: no tools configured for %s", pkgerrors.ErrCapabilityUnavailable, cap)
	}
	for _, tool := range tools {
		if a.runner.LookPath(tool.Command) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", pkgerrors.ErrCapabilityUnavailable, cap)
}

// DiscoveryTools lists the configured subdomain-discovery tool names, so the
// pipeline can fan out across tools and honor a scan's requested tool list.
func (a *Adapter) DiscoveryTools() []string {
	tools := a.tools(SubdomainDiscovery)
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	return names
}

// DiscoverSubdomains runs one named discovery tool against the domain.
func (a *Adapter) DiscoverSubdomains(ctx context.Context, toolName, domain string) ([]SubdomainRecord, error) {
	tool, err := a.tool(SubdomainDiscovery, toolName)
	if err != nil {
		return nil, err
	}

	lines, err := a.invoke(ctx, SubdomainDiscovery, tool, domain, nil)
	if err != nil {
		return nil, err
	}

	records := make([]SubdomainRecord, 0, len(lines))
	for _, line := range lines {
		name := strings.ToLower(strings.TrimSpace(line))
		if name == "" || strings.HasPrefix(name, "#") || !strings.Contains(name, ".") {
			continue
		}
		records = append(records, SubdomainRecord{Name: name, Source: toolName})
	}
	return records, nil
}

// ScanPorts probes the given hosts for open ports. Output lines are
// host:port pairs; malformed lines are skipped individually.
func (a *Adapter) ScanPorts(ctx context.Context, hosts []string) ([]PortRecord, error) {
	tool, err := a.firstAvailable(PortScan)
	if err != nil {
		return nil, err
	}

	lines, err := a.invoke(ctx, PortScan, tool, "", hosts)
	if err != nil {
		return nil, err
	}

	records := make([]PortRecord, 0, len(lines))
	for _, line := range lines {
		rec, ok := parsePortLine(line)
		if !ok {
			a.logger.WithFields(logger.Fields{"line": line}).Debug("Skipping malformed port-scan line")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ProbeWeb checks which targets answer as live web servers. The probe tool
// emits one JSON object per line; unparseable lines are skipped.
func (a *Adapter) ProbeWeb(ctx context.Context, targets []string) ([]ProbeRecord, error) {
	tool, err := a.firstAvailable(WebProbe)
	if err != nil {
		return nil, err
	}

	lines, err := a.invoke(ctx, WebProbe, tool, "", targets)
	if err != nil {
		return nil, err
	}

	records := make([]ProbeRecord, 0, len(lines))
	for _, line := range lines {
		rec, ok := parseProbeLine(line)
		if !ok {
			a.logger.WithFields(logger.Fields{"line": line}).Debug("Skipping malformed web-probe line")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// DiscoverContent gathers known URLs for one live host.
func (a *Adapter) DiscoverContent(ctx context.Context, host string) ([]URLRecord, error) {
	tool, err := a.firstAvailable(ContentDiscovery)
	if err != nil {
		return nil, err
	}

	lines, err := a.invoke(ctx, ContentDiscovery, tool, host, nil)
	if err != nil {
		return nil, err
	}

	records := make([]URLRecord, 0, len(lines))
	for _, line := range lines {
		rec, ok := parseURLLine(line)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// invoke runs one tool over scratch files and returns its raw output lines.
// The scratch files live for exactly this call.
func (a *Adapter) invoke(ctx context.Context, cap Capability, tool config.ToolConfig, domain string, inputs []string) ([]string, error) {
	if err := a.runner.LookPath(tool.Command); err != nil {
		return nil, fmt.Errorf("%w: %s (%s)", pkgerrors.ErrCapabilityUnavailable, cap, tool.Command)
	}

	files := newScratch()
	defer files.Close()

	outputPath, err := files.tempFile(a.workdir, fmt.Sprintf("%s_*_output.txt", tool.Name))
	if err != nil {
		return nil, pkgerrors.NewCapabilityError(string(cap), err)
	}

	inputPath := ""
	if inputs != nil {
		inputPath, err = files.writeLines(a.workdir, fmt.Sprintf("%s_*_input.txt", tool.Name), inputs)
		if err != nil {
			return nil, pkgerrors.NewCapabilityError(string(cap), err)
		}
	}

	args := substituteArgs(tool.Args, domain, inputPath, outputPath)

	if a.cfg.SoftBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.SoftBudget)
		defer cancel()
	}

	if err := a.runner.Run(ctx, tool.Command, args); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s (%s)", pkgerrors.ErrCapabilityTimeout, cap, tool.Name)
		}
		return nil, pkgerrors.NewCapabilityError(string(cap), err)
	}

	return readLines(outputPath)
}

func (a *Adapter) tools(cap Capability) []config.ToolConfig {
	cc, ok := a.cfg.Capabilities[string(cap)]
	if !ok {
		return nil
	}
	return cc.Tools
}

func (a *Adapter) tool(cap Capability, name string) (config.ToolConfig, error) {
	for _, tool := range a.tools(cap) {
		if tool.Name == name {
			return tool, nil
		}
	}
	return config.ToolConfig{}, fmt.Errorf("%w: tool %s not configured for %s", pkgerrors.ErrCapabilityUnavailable, name, cap)
}

func (a *Adapter) firstAvailable(cap Capability) (config.ToolConfig, error) {
	tools := a.tools(cap)
	if len(tools) == 0 {
		return config.ToolConfig{}, fmt.Errorf("%w: no tools configured for %s", pkgerrors.ErrCapabilityUnavailable, cap)
	}
	for _, tool := range tools {
		if a.runner.LookPath(tool.Command) == nil {
			return tool, nil
		}
	}
	return config.ToolConfig{}, fmt.Errorf("%w: %s", pkgerrors.ErrCapabilityUnavailable, cap)
}

func substituteArgs(args []string, domain, inputPath, outputPath string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		arg = strings.ReplaceAll(arg, tokenDomain, domain)
		arg = strings.ReplaceAll(arg, tokenInput, inputPath)
		arg = strings.ReplaceAll(arg, tokenOutput, outputPath)
		out[i] = arg
	}
	return out
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
