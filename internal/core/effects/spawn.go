package effects

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/zeusync/xsyncd/internal/core/observability/log"
)

// ErrSpawn wraps every helper launch failure.
var ErrSpawn = errors.New("spawn failed")

// ExecSpawner starts processes detached from the event loop. The child is
// reaped in the background and a non-zero exit is logged.
type ExecSpawner struct {
	logger log.Log
}

func NewExecSpawner(logger log.Log) *ExecSpawner {
	return &ExecSpawner{logger: logger.With(log.String("component", "spawner"))}
}

func (s *ExecSpawner) Spawn(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty command", ErrSpawn)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSpawn, argv[0], err)
	}
	s.logger.Debug("Spawned helper", log.Strings("argv", argv), log.Int("pid", cmd.Process.Pid))

	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Warn("Helper exited with error", log.Strings("argv", argv), log.Error(err))
		}
	}()
	return nil
}
