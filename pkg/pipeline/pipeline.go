// Package pipeline sequences the fixed recon stage topology:
//
//	Discovery -> Dedup -> Probe -> Content Discovery -> Change Detection
//
// with an optional port-scan stage placed before or after the probe by
// configuration. Every stage consumes only the delta produced by the stage
// before it and persists its output immediately, so a later failure never
// loses earlier results.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"reconpipe/internal/config"
	"reconpipe/internal/models"
	"reconpipe/internal/notification"
	"reconpipe/pkg/capability"
	pkgerrors "reconpipe/pkg/errors"
	"reconpipe/pkg/executor"
	"reconpipe/pkg/jsmon"
	"reconpipe/pkg/logger"
)

// Adapter is the capability boundary the sequencer drives.
type Adapter interface {
	Available(cap capability.Capability) error
	DiscoveryTools() []string
	DiscoverSubdomains(ctx context.Context, toolName, domain string) ([]capability.SubdomainRecord, error)
	ScanPorts(ctx context.Context, hosts []string) ([]capability.PortRecord, error)
	ProbeWeb(ctx context.Context, targets []string) ([]capability.ProbeRecord, error)
	DiscoverContent(ctx context.Context, host string) ([]capability.URLRecord, error)
}

// Store is the slice of the asset store the sequencer writes through. Each
// Record* call returns only the never-seen-before subset.
type Store interface {
	RecordSubdomains(records []models.Subdomain) ([]models.Subdomain, error)
	RecordLiveHosts(records []models.LiveHost) ([]models.LiveHost, error)
	RecordOpenPorts(records []models.OpenPort) ([]models.OpenPort, error)
	RecordURLs(records []models.URL) ([]models.URL, error)
}

// Progress receives a percentage (monotonically non-decreasing) and a
// human-readable status line after each stage. Implementations must not
// block: the sequencer calls this inline between stages.
type Progress func(percent int, message string)

// Summary reports what one run found versus what was genuinely new. Counts
// include only confirmed assets, so totals lost to batch failures make the
// summary a conservative lower bound.
type Summary struct {
	FoundSubdomains int `json:"found_subdomains"`
	NewSubdomains   int `json:"new_subdomains"`
	FoundLiveHosts  int `json:"found_live_hosts"`
	NewLiveHosts    int `json:"new_live_hosts"`
	FoundOpenPorts  int `json:"found_open_ports"`
	NewOpenPorts    int `json:"new_open_ports"`
	FoundURLs       int `json:"found_urls"`
	NewURLs         int `json:"new_urls"`
	ScriptsChecked  int `json:"scripts_checked"`
	ScriptsNew      int `json:"scripts_new"`
	ScriptsChanged  int `json:"scripts_changed"`

	// PartialFailures annotates degraded stages (missing binaries, timed
	// out or failed batches). They never prevent completion.
	PartialFailures []string `json:"partial_failures,omitempty"`
}

type Pipeline struct {
	adapter  Adapter
	store    Store
	detector *jsmon.Detector
	notifier notification.Notifier
	cfg      *config.PipelineConfig
	progress Progress
	logger   *logger.Logger
}

func New(adapter Adapter, store Store, detector *jsmon.Detector, notifier notification.Notifier, cfg *config.PipelineConfig, progress Progress) *Pipeline {
	if progress == nil {
		progress = func(int, string) {}
	}
	return &Pipeline{
		adapter:  adapter,
		store:    store,
		detector: detector,
		notifier: notifier,
		cfg:      cfg,
		progress: progress,
		logger:   logger.NewLogger(logrus.InfoLevel),
	}
}

// Run executes the stage sequence for one scan. It returns a non-nil
// Summary even on failure: everything persisted before the error is kept.
// The only errors returned are cancellation and stage-fatal conditions
// (storage unreachable); capability and batch failures are absorbed into
// the summary.
func (p *Pipeline) Run(ctx context.Context, scan *models.Scan) (*Summary, error) {
	summary := &Summary{}
	log := p.logger.WithScan(scan.UUID, scan.Domain)

	// Stage 1+2: discovery, then dedup against everything ever seen.
	p.progress(5, "Running subdomain discovery...")
	newSubdomains, err := p.runDiscovery(ctx, scan, summary)
	if err != nil {
		return summary, err
	}
	p.progress(30, fmt.Sprintf("Discovery finished: %d found, %d new", summary.FoundSubdomains, summary.NewSubdomains))

	if summary.NewSubdomains > 0 {
		p.notify(notification.Event{
			Message:  fmt.Sprintf("Found %d new subdomains for %s", summary.NewSubdomains, scan.Domain),
			Severity: notification.SeverityMedium,
			Details:  map[string]string{"domain": scan.Domain, "scan_id": scan.UUID},
		})
	}

	if scan.ScanType == models.ScanTypeSubdomain {
		p.progress(100, "Scan completed")
		return summary, nil
	}

	targets := subdomainNames(newSubdomains)

	if scan.ScanType == models.ScanTypeFull && p.cfg.PortScanOrder == config.PortScanBeforeProbe {
		if err := p.runPortScan(ctx, scan, targets, summary); err != nil {
			return summary, err
		}
		p.progress(45, fmt.Sprintf("Port scan finished: %d open ports", summary.FoundOpenPorts))
	}

	// Stage 3: probe only the delta; previously-known subdomains were
	// probed by the scan that first recorded them.
	p.progress(50, "Probing new assets for web servers...")
	newHosts, err := p.runProbe(ctx, scan, targets, summary)
	if err != nil {
		return summary, err
	}
	p.progress(65, fmt.Sprintf("Probe finished: %d live, %d new", summary.FoundLiveHosts, summary.NewLiveHosts))

	if scan.ScanType == models.ScanTypeFull && p.cfg.PortScanOrder == config.PortScanAfterProbe {
		if err := p.runPortScan(ctx, scan, liveHostNames(newHosts), summary); err != nil {
			return summary, err
		}
		p.progress(70, fmt.Sprintf("Port scan finished: %d open ports", summary.FoundOpenPorts))
	}

	if scan.ScanType == models.ScanTypeProbing {
		p.progress(100, "Scan completed")
		return summary, nil
	}

	// Stage 4: content discovery on hosts confirmed live this run.
	p.progress(75, "Gathering URLs from live hosts...")
	newURLs, err := p.runContentDiscovery(ctx, scan, newHosts, summary)
	if err != nil {
		return summary, err
	}
	p.progress(85, fmt.Sprintf("Content discovery finished: %d URLs, %d new", summary.FoundURLs, summary.NewURLs))

	// Stage 5: change detection over the script resources just discovered.
	p.progress(90, "Checking tracked scripts for changes...")
	if err := p.runChangeDetection(ctx, scan, newURLs, summary); err != nil {
		return summary, err
	}

	p.progress(100, "Scan completed")
	log.WithFields(logrus.Fields{
		"new_subdomains": summary.NewSubdomains,
		"new_live_hosts": summary.NewLiveHosts,
		"new_urls":       summary.NewURLs,
	}).Info("Pipeline run finished")

	return summary, nil
}

func (p *Pipeline) runDiscovery(ctx context.Context, scan *models.Scan, summary *Summary) ([]models.Subdomain, error) {
	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}

	if err := p.adapter.Available(capability.SubdomainDiscovery); err != nil {
		p.noteDegraded(summary, "discovery", err)
		return nil, nil
	}

	tools := selectTools(p.adapter.DiscoveryTools(), scan.ToolList)
	if len(tools) == 0 {
		p.noteDegraded(summary, "discovery", fmt.Errorf("no requested discovery tool is configured"))
		return nil, nil
	}

	// Fan out across discovery tools: one batch per tool, since every tool
	// covers the whole domain on its own.
	res := executor.RunParallel(ctx, tools,
		executor.Options{BatchSize: 1, Workers: p.cfg.Workers},
		func(ctx context.Context, batch []string) ([]capability.SubdomainRecord, error) {
			return p.adapter.DiscoverSubdomains(ctx, batch[0], scan.Domain)
		},
		capability.SubdomainRecord.Identity)
	p.collectFailures(summary, "discovery", res.Failures)

	summary.FoundSubdomains = len(res.Records)

	records := make([]models.Subdomain, 0, len(res.Records))
	for _, rec := range res.Records {
		records = append(records, models.Subdomain{
			Name:         rec.Name,
			ParentDomain: scan.Domain,
			Source:       rec.Source,
			ScanID:       scan.UUID,
		})
	}

	fresh, err := p.store.RecordSubdomains(records)
	if err != nil {
		return nil, pkgerrors.NewStageError("dedup", err)
	}
	summary.NewSubdomains = len(fresh)
	return fresh, nil
}

func (p *Pipeline) runProbe(ctx context.Context, scan *models.Scan, targets []string, summary *Summary) ([]models.LiveHost, error) {
	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	if err := p.adapter.Available(capability.WebProbe); err != nil {
		p.noteDegraded(summary, "probe", err)
		return nil, nil
	}

	res := executor.RunParallel(ctx, targets,
		executor.Options{BatchSize: p.cfg.BatchSize, Workers: p.cfg.Workers},
		p.adapter.ProbeWeb,
		capability.ProbeRecord.Identity)
	p.collectFailures(summary, "probe", res.Failures)

	summary.FoundLiveHosts = len(res.Records)

	records := make([]models.LiveHost, 0, len(res.Records))
	for _, rec := range res.Records {
		records = append(records, models.LiveHost{
			URL:           rec.URL,
			Subdomain:     rec.Host,
			StatusCode:    rec.StatusCode,
			Title:         rec.Title,
			TechStack:     strings.Join(rec.TechStack, ","),
			ContentLength: rec.ContentLength,
			ScanID:        scan.UUID,
		})
	}

	fresh, err := p.store.RecordLiveHosts(records)
	if err != nil {
		return nil, pkgerrors.NewStageError("probe", err)
	}
	summary.NewLiveHosts = len(fresh)
	return fresh, nil
}

func (p *Pipeline) runPortScan(ctx context.Context, scan *models.Scan, targets []string, summary *Summary) error {
	if err := p.checkCancelled(ctx); err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}

	if err := p.adapter.Available(capability.PortScan); err != nil {
		p.noteDegraded(summary, "portscan", err)
		return nil
	}

	res := executor.RunParallel(ctx, targets,
		executor.Options{BatchSize: p.cfg.BatchSize, Workers: p.cfg.Workers},
		p.adapter.ScanPorts,
		capability.PortRecord.Identity)
	p.collectFailures(summary, "portscan", res.Failures)

	summary.FoundOpenPorts = len(res.Records)

	records := make([]models.OpenPort, 0, len(res.Records))
	for _, rec := range res.Records {
		records = append(records, models.OpenPort{
			Host:     rec.Host,
			Port:     rec.Port,
			Protocol: rec.Protocol,
			ScanID:   scan.UUID,
		})
	}

	fresh, err := p.store.RecordOpenPorts(records)
	if err != nil {
		return pkgerrors.NewStageError("portscan", err)
	}
	summary.NewOpenPorts = len(fresh)
	return nil
}

func (p *Pipeline) runContentDiscovery(ctx context.Context, scan *models.Scan, hosts []models.LiveHost, summary *Summary) ([]models.URL, error) {
	if err := p.checkCancelled(ctx); err != nil {
		return nil, err
	}
	if len(hosts) == 0 {
		return nil, nil
	}

	if err := p.adapter.Available(capability.ContentDiscovery); err != nil {
		p.noteDegraded(summary, "content", err)
		return nil, nil
	}

	targets := make([]string, 0, len(hosts))
	for _, host := range hosts {
		targets = append(targets, host.URL)
	}

	// One batch per host: the content-discovery tool takes a single target.
	res := executor.RunParallel(ctx, targets,
		executor.Options{BatchSize: 1, Workers: p.cfg.Workers},
		func(ctx context.Context, batch []string) ([]capability.URLRecord, error) {
			return p.adapter.DiscoverContent(ctx, batch[0])
		},
		capability.URLRecord.Identity)
	p.collectFailures(summary, "content", res.Failures)

	summary.FoundURLs = len(res.Records)

	records := make([]models.URL, 0, len(res.Records))
	for _, rec := range res.Records {
		records = append(records, models.URL{
			URL:        rec.URL,
			Host:       rec.Host,
			Path:       rec.Path,
			Method:     rec.Method,
			StatusCode: rec.StatusCode,
			ScanID:     scan.UUID,
		})
	}

	fresh, err := p.store.RecordURLs(records)
	if err != nil {
		return nil, pkgerrors.NewStageError("content", err)
	}
	summary.NewURLs = len(fresh)
	return fresh, nil
}

func (p *Pipeline) runChangeDetection(ctx context.Context, scan *models.Scan, urls []models.URL, summary *Summary) error {
	if err := p.checkCancelled(ctx); err != nil {
		return err
	}
	if p.detector == nil {
		return nil
	}

	var scripts []string
	for _, u := range urls {
		if capability.IsScript(u.URL) {
			scripts = append(scripts, u.URL)
		}
	}
	if len(scripts) == 0 {
		return nil
	}

	report, err := p.detector.Check(ctx, scripts, scan.UUID)
	summary.ScriptsChecked = report.Checked
	summary.ScriptsNew = report.New
	summary.ScriptsChanged = report.Changed
	if err != nil {
		if ctx.Err() != nil {
			return pkgerrors.ErrScanCancelled
		}
		return pkgerrors.NewStageError("changedetect", err)
	}
	return nil
}

func (p *Pipeline) checkCancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return pkgerrors.ErrScanCancelled
	}
	return nil
}

// noteDegraded records a capability-unavailable condition: the stage yields
// an empty result and the pipeline keeps going.
func (p *Pipeline) noteDegraded(summary *Summary, stage string, err error) {
	note := fmt.Sprintf("%s: %v", stage, err)
	summary.PartialFailures = append(summary.PartialFailures, note)
	p.logger.WithFields(logger.Fields{"stage": stage, "error": err}).Warn("Stage degraded to empty result")
	p.notify(notification.Event{
		Message:  fmt.Sprintf("Stage %s skipped: %v", stage, err),
		Severity: notification.SeverityInfo,
	})
}

func (p *Pipeline) collectFailures(summary *Summary, stage string, failures []*pkgerrors.BatchFailure) {
	for _, failure := range failures {
		note := fmt.Sprintf("%s: %v", stage, failure)
		summary.PartialFailures = append(summary.PartialFailures, note)
		p.logger.WithFields(logger.Fields{
			"stage": stage,
			"batch": failure.Batch,
			"size":  failure.Size,
			"error": failure.Err,
		}).Warn("Batch failed, continuing with siblings")
	}
}

func (p *Pipeline) notify(event notification.Event) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Send(event); err != nil {
		p.logger.WithFields(logger.Fields{"error": err, "message": event.Message}).Error("Failed to deliver alert")
	}
}

func selectTools(configured []string, requested string) []string {
	if strings.TrimSpace(requested) == "" {
		return configured
	}
	want := make(map[string]bool)
	for _, name := range strings.Split(requested, ",") {
		want[strings.TrimSpace(name)] = true
	}
	var tools []string
	for _, name := range configured {
		if want[name] {
			tools = append(tools, name)
		}
	}
	return tools
}

func subdomainNames(subs []models.Subdomain) []string {
	names := make([]string, 0, len(subs))
	for _, sub := range subs {
		names = append(names, sub.Name)
	}
	return names
}

func liveHostNames(hosts []models.LiveHost) []string {
	names := make([]string, 0, len(hosts))
	for _, host := range hosts {
		names = append(names, host.Subdomain)
	}
	return names
}
