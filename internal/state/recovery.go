package state

import (
	"fmt"
	"os"
	"syscall"
	"time"
)

// MarkInterrupted finds runs still marked running whose owning process is
// gone and moves them to the interrupted state. Returns the affected runs.
func (db *DB) MarkInterrupted() ([]Run, error) {
	rows, err := db.Query(`SELECT `+runColumns+` FROM pipeline_runs WHERE status = ?`, string(RunRunning))
	if err != nil {
		return nil, fmt.Errorf("list running runs: %w", err)
	}
	var running []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		running = append(running, *r)
	}
	rows.Close()

	var interrupted []Run
	for _, r := range running {
		if r.PID == os.Getpid() || isProcessAlive(r.PID) {
			continue
		}
		now := time.Now().UTC()
		r.Status = RunInterrupted
		r.FinishedAt = &now
		if r.Error == "" {
			r.Error = "process exited before the run finished"
		}
		if err := db.FinishRun(&r); err != nil {
			return interrupted, err
		}
		interrupted = append(interrupted, r)
	}
	return interrupted, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Send signal 0 to check if process exists
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
