// Package runner owns a single program run: its state machine, the
// robot cell lifecycle, stdout and log capture, the E-stop monitor
// and the final result record.
package runner

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"wandelscript/builtins"
	"wandelscript/cell"
	"wandelscript/eval"
	"wandelscript/exception"
	"wandelscript/ffi"
	"wandelscript/parser"
	"wandelscript/runtime"
	"wandelscript/serializer"
	"wandelscript/types"
)

// ProgramRunState is the lifecycle state of a program run
type ProgramRunState string

const (
	StateNotStarted ProgramRunState = "not started"
	StateRunning    ProgramRunState = "running"
	StateCompleted  ProgramRunState = "completed"
	StateFailed     ProgramRunState = "failed"
	StateStopped    ProgramRunState = "stopped"
)

// PosePath is one recorded trajectory of a motion group
type PosePath struct {
	Poses []cell.RobotState
}

// ExecutionResult aggregates the recorded trajectories of one motion
// group
type ExecutionResult struct {
	MotionGroupID  string
	MotionDuration float64
	Paths          []PosePath
}

// ProgramRun holds the state and results of a program run
type ProgramRun struct {
	ID               string
	State            ProgramRunState
	Logs             string
	Stdout           string
	Store            map[string]any
	Error            string
	Traceback        string
	StartTime        *time.Time
	EndTime          *time.Time
	ExecutionResults []ExecutionResult
}

// Options configure a program runner
type Options struct {
	DefaultRobot     string
	DefaultTCP       string
	InitialStore     map[string]types.Value
	ForeignFunctions []ffi.ForeignFunction
	Plannable        bool
	// Stdout receives live program output in addition to the
	// captured copy; defaults to os.Stdout
	Stdout *os.File
}

// ProgramRunner manages a single program execution. A runner is not
// restartable: once terminal, create a new one.
type ProgramRunner struct {
	code      string
	robotCell cell.RobotCell
	options   Options

	mu      sync.Mutex
	run     ProgramRun
	ec      *runtime.ExecutionContext
	done    chan struct{}
	started bool
	execErr error
}

// NewProgramRunner creates a runner in the not-started state
func NewProgramRunner(code string, robotCell cell.RobotCell, options Options) *ProgramRunner {
	return &ProgramRunner{
		code:      code,
		robotCell: robotCell,
		options:   options,
		run:       ProgramRun{ID: newRunID(), State: StateNotStarted},
		done:      make(chan struct{}),
	}
}

func newRunID() string {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(raw[:])
}

// ProgramRun returns a snapshot of the run record
func (r *ProgramRunner) ProgramRun() ProgramRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.run
}

// ID returns the run id
func (r *ProgramRunner) ID() string {
	return r.ProgramRun().ID
}

// State returns the current state
func (r *ProgramRunner) State() ProgramRunState {
	return r.ProgramRun().State
}

// IsRunning reports whether the program is currently executing
func (r *ProgramRunner) IsRunning() bool {
	return r.State() == StateRunning
}

func (r *ProgramRunner) setState(state ProgramRunState) {
	r.mu.Lock()
	r.run.State = state
	r.mu.Unlock()
}

// Start launches the program execution. With sync=true the call
// blocks until the run is terminal.
func (r *ProgramRunner) Start(sync bool) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("the runner is not in the not-started state; create a new runner to execute again")
	}
	r.started = true
	r.mu.Unlock()

	go r.execute()
	if sync {
		r.Join()
	}
	return nil
}

// Join waits for the run to finish and returns the internal error, if
// any
func (r *ProgramRunner) Join() error {
	<-r.done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.execErr
}

// Stop requests cooperative cancellation of a running program
func (r *ProgramRunner) Stop(sync bool) error {
	r.mu.Lock()
	ec := r.ec
	running := r.run.State == StateRunning
	r.mu.Unlock()
	if !running || ec == nil {
		return errors.New("program is not running")
	}
	ec.Stop()
	if sync {
		r.Join()
	}
	return nil
}

// execute is the run loop: acquire the cell, run the program under an
// E-stop monitor, collate results, release the cell.
func (r *ProgramRunner) execute() {
	defer close(r.done)

	liveStdout := r.options.Stdout
	if liveStdout == nil {
		liveStdout = os.Stdout
	}
	stdout := NewTee(liveStdout)
	logCapture := NewTee(nil)
	logger := log.New(logCapture, "", log.LstdFlags)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program, err := parser.Parse(r.code)
	if err != nil {
		r.failWith(err)
		r.finish(stdout, logCapture, nil)
		return
	}

	if err := r.robotCell.Open(ctx); err != nil {
		r.failWith(err)
		r.finish(stdout, logCapture, nil)
		return
	}
	defer func() {
		_ = r.robotCell.Close(context.WithoutCancel(ctx))
	}()

	ec := runtime.NewExecutionContext(r.robotCell, runtime.Params{
		DefaultRobot: r.options.DefaultRobot,
		DefaultTCP:   r.options.DefaultTCP,
		InitialVars:  r.options.InitialStore,
		Plannable:    r.options.Plannable,
		Stdout:       stdout,
		Logger:       logger,
	})
	r.mu.Lock()
	r.ec = ec
	r.mu.Unlock()

	registry := builtins.NewRegistry()
	if err := ffi.Register(registry, r.options.ForeignFunctions); err != nil {
		r.failWith(err)
		r.finish(stdout, logCapture, ec)
		return
	}
	evaluator := eval.NewEvaluatorWithRegistry(ec, registry)

	// a user stop cancels the evaluation context
	stopWatcher := make(chan struct{})
	go func() {
		select {
		case <-ec.StopChan():
			cancel()
		case <-stopWatcher:
		}
	}()
	defer close(stopWatcher)

	// E-stop monitor: any safety state outside normal and reduced
	// stops the run
	monitorCtx, stopMonitor := context.WithCancel(ctx)
	defer stopMonitor()
	go r.monitorSafety(monitorCtx, ec, logger)

	logger.Printf("run program %s", r.run.ID)
	now := time.Now()
	r.mu.Lock()
	r.run.State = StateRunning
	r.run.StartTime = &now
	r.mu.Unlock()

	err = evaluator.RunProgram(ctx, program)
	stopMonitor()

	switch {
	case err == nil && ec.Stopped():
		logger.Printf("program %s stopped", r.run.ID)
		r.setState(StateStopped)
	case err == nil:
		logger.Printf("program %s completed", r.run.ID)
		r.setState(StateCompleted)
	case errors.Is(err, context.Canceled) || ec.Stopped():
		logger.Printf("program %s cancelled", r.run.ID)
		r.setState(StateStopped)
	default:
		logger.Printf("program %s failed: %v", r.run.ID, err)
		r.failWith(err)
	}

	r.finish(stdout, logCapture, ec)
}

// monitorSafety subscribes to the cell state stream and stops the run
// when the safety state leaves the acceptable set
func (r *ProgramRunner) monitorSafety(ctx context.Context, ec *runtime.ExecutionContext, logger *log.Logger) {
	states, err := r.robotCell.StateStream(ctx, 1000)
	if err != nil {
		return
	}
	for state := range states {
		if state.SafetyState != cell.SafetyNormal && state.SafetyState != cell.SafetyReduced {
			logger.Printf("estop detected: %s", state.SafetyState)
			ec.Stop()
			return
		}
	}
}

func (r *ProgramRunner) failWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.run.State = StateFailed
	r.run.Error = err.Error()
	r.run.Traceback = formatTraceback(err)
	r.execErr = err
}

// formatTraceback renders the error with its source location when it
// carries one
func formatTraceback(err error) string {
	var programErr exception.ProgramError
	if errors.As(err, &programErr) && programErr.Location() != nil {
		location := programErr.Location()
		return fmt.Sprintf("Traceback:\n  %s\n%s", location, err.Error())
	}
	return fmt.Sprintf("Traceback:\n%s", err.Error())
}

// finish collates results into the run record
func (r *ProgramRunner) finish(stdout, logCapture *Tee, ec *runtime.ExecutionContext) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.run.EndTime = &now
	r.run.Stdout = stdout.String()
	r.run.Logs = logCapture.String()
	if ec == nil {
		return
	}
	r.run.Store = serializer.EncodeStore(rootStoreData(ec))
	r.run.ExecutionResults = nil
	motionGroupIDs := make([]string, 0, len(ec.Recordings))
	for motionGroupID := range ec.Recordings {
		motionGroupIDs = append(motionGroupIDs, motionGroupID)
	}
	sort.Strings(motionGroupIDs)
	for _, motionGroupID := range motionGroupIDs {
		segments := ec.Recordings[motionGroupID]
		result := ExecutionResult{MotionGroupID: motionGroupID}
		for _, segment := range segments {
			path := PosePath{}
			for _, state := range segment {
				path.Poses = append(path.Poses, state.State)
			}
			result.Paths = append(result.Paths, path)
		}
		r.run.ExecutionResults = append(r.run.ExecutionResults, result)
	}
}

// rootStoreData snapshots the outermost scope, where program results
// live even if the run failed inside a function call
func rootStoreData(ec *runtime.ExecutionContext) map[string]types.Value {
	return ec.Store().Data()
}

// Run creates a runner and executes the program synchronously
func Run(code string, robotCell cell.RobotCell, options Options) *ProgramRunner {
	r := NewProgramRunner(code, robotCell, options)
	_ = r.Start(true)
	return r
}

// RunFile reads a program from a file and executes it synchronously
func RunFile(path string, robotCell cell.RobotCell, options Options) (*ProgramRunner, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if robotCell == nil {
		robotCell = cell.NewSimulatedRobotCell()
	}
	return Run(string(code), robotCell, options), nil
}
