// Package util provides general utility functions shared across dsh.
package util

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"
)

// ProcessAudit snapshots the current process's open file descriptors
// and child processes, so tests can assert a pipeline left neither
// behind (spec.md §8: no descriptor leak, no zombie children).
type ProcessAudit struct {
	OpenFiles int
	Children  int
	Zombies   int
}

// Snapshot reports the current process's audit counters.
func Snapshot() (*ProcessAudit, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("snapshot process: %w", err)
	}

	files, err := p.OpenFiles()
	if err != nil {
		return nil, fmt.Errorf("list open files: %w", err)
	}

	children, err := p.Children()
	if err != nil && err != process.ErrorNoChildren {
		return nil, fmt.Errorf("list children: %w", err)
	}

	zombies := 0
	for _, c := range children {
		status, err := c.Status()
		if err != nil {
			continue
		}
		for _, s := range status {
			if s == process.Zombie {
				zombies++
				break
			}
		}
	}

	return &ProcessAudit{
		OpenFiles: len(files),
		Children:  len(children),
		Zombies:   zombies,
	}, nil
}

// Delta reports how many more open files, live children, and zombies
// exist in after than in before.
func (before *ProcessAudit) Delta(after *ProcessAudit) (files, children, zombies int) {
	return after.OpenFiles - before.OpenFiles,
		after.Children - before.Children,
		after.Zombies - before.Zombies
}
