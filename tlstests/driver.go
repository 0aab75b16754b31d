package tlstests

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/jsandas/tlstools-contract-tests/framework"
)

// DriverState is the lifecycle state of a Driver.
type DriverState int

const (
	NotStarted DriverState = iota
	Running
	Completed
)

func (s DriverState) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("DriverState(%d)", int(s))
	}
}

// Driver runs every case of an expectation table once against the service. A Driver can
// only be run once.
type Driver struct {
	service     Service
	table       *ExpectationTable
	parallelism int
	state       DriverState
	lock        sync.Mutex
}

// caseJob is one test case, reduced to the checks it makes and a function that produces
// their outcomes.
type caseJob struct {
	name   string
	checks []string
	run    func(ctx context.Context, logger framework.Logger) ([]Outcome, error)
}

type caseReport struct {
	outcomes []Outcome
	err      error
	debug    framework.CapturedOutput
}

// NewDriver creates a Driver. With a parallelism greater than 1, that many cases are sent
// to the service at once; results are still recorded in table order.
func NewDriver(service Service, table *ExpectationTable, parallelism int) *Driver {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Driver{
		service:     service,
		table:       table,
		parallelism: parallelism,
	}
}

func (d *Driver) State() DriverState {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.state
}

func (d *Driver) transition(from, to DriverState) error {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.state != from {
		return fmt.Errorf("driver is %s, cannot move to %s", d.state, to)
	}
	d.state = to
	return nil
}

// Run runs all scan cases, then all parse cases, and returns the accumulated results.
func (d *Driver) Run(
	ctx context.Context,
	filter framework.Filter,
	testLogger framework.TestLogger,
) (framework.Results, error) {
	if err := d.transition(NotStarted, Running); err != nil {
		return framework.Results{}, err
	}

	results := framework.Run(filter, testLogger, func(c *framework.Context) {
		c.RunGroup("scan", func(c *framework.Context) {
			d.runCases(ctx, c, d.scanJobs())
		})
		c.RunGroup("parse", func(c *framework.Context) {
			d.runCases(ctx, c, d.parseJobs())
		})
	})

	if err := d.transition(Running, Completed); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Driver) scanJobs() []caseJob {
	var jobs []caseJob
	for _, exp := range d.table.ScanCases() {
		exp := exp
		jobs = append(jobs, caseJob{
			name:   exp.ID,
			checks: ExpectedScanChecks(exp),
			run: func(ctx context.Context, logger framework.Logger) ([]Outcome, error) {
				resp, err := d.service.Scan(ctx, exp.ID, logger)
				if err != nil {
					return nil, err
				}
				return CompareScan(exp, resp), nil
			},
		})
	}
	return jobs
}

func (d *Driver) parseJobs() []caseJob {
	var jobs []caseJob
	for _, exp := range d.table.ParseCases() {
		exp := exp
		jobs = append(jobs, caseJob{
			name:   exp.ID,
			checks: ExpectedParseChecks(exp),
			run: func(ctx context.Context, logger framework.Logger) ([]Outcome, error) {
				logger.Printf("Parsing %s from %s", exp.Kind, exp.InputName)
				resp, err := parseWith(d.service, exp.Kind)(ctx, exp.Input, logger)
				if err != nil {
					return nil, err
				}
				return CompareParse(exp, resp), nil
			},
		})
	}
	return jobs
}

// runCases executes the selected jobs on up to d.parallelism workers. Workers only talk to
// the service and compare; every report is recorded here, on the calling goroutine, in
// job order.
func (d *Driver) runCases(ctx context.Context, c *framework.Context, jobs []caseJob) {
	var selected []caseJob
	for _, j := range jobs {
		if c.Selected(j.name) {
			selected = append(selected, j)
		}
	}

	reports := framework.NewMessageSortingQueue[caseReport](len(selected))
	if len(selected) > 0 {
		workers := d.parallelism
		if workers > len(selected) {
			workers = len(selected)
		}
		indexes := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indexes {
					reports.Accept(i+1, executeJob(ctx, selected[i]))
				}
			}()
		}
		go func() {
			for i := range selected {
				indexes <- i
			}
			close(indexes)
			wg.Wait()
			reports.Close()
		}()
	} else {
		reports.Close()
	}

	for _, j := range jobs {
		if !c.Selected(j.name) {
			c.Run(j.name, func(*framework.Context) {})
			continue
		}
		report := <-reports.C
		job := j
		c.Run(job.name, func(c *framework.Context) {
			recordReport(c, job, report)
		})
	}
}

func executeJob(ctx context.Context, job caseJob) (report caseReport) {
	var logger framework.CapturingLogger
	defer func() {
		if r := recover(); r != nil {
			report.outcomes = nil
			report.err = fmt.Errorf("unexpected panic in test: %+v\n%s", r, string(debug.Stack()))
		}
		report.debug = logger.Output()
	}()
	report.outcomes, report.err = job.run(ctx, &logger)
	return report
}

func recordReport(c *framework.Context, job caseJob, report caseReport) {
	report.debug.Replay(c.DebugLogger())
	if report.err != nil {
		var te *framework.TransportError
		if errors.As(report.err, &te) {
			c.FailChecks(job.checks, &Failure{Class: Transport, Message: te.Error(), Cause: te})
		} else {
			c.FailChecks(job.checks, report.err)
		}
		return
	}
	for _, o := range report.outcomes {
		c.Check(o.Check, o.Err())
	}
}
