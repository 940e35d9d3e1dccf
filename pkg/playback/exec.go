package playback

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecPlayer plays media by shelling out to an external player
// command (afplay, mpv, ffplay). Load verifies the source exists;
// Play blocks until the player process exits, which for these players
// is the natural end of the stream.
type ExecPlayer struct {
	command string
	args    []string
}

// NewExecPlayer creates a player around the given command. Extra args
// are passed before the source path.
func NewExecPlayer(command string, args ...string) *ExecPlayer {
	return &ExecPlayer{command: command, args: args}
}

func (p *ExecPlayer) Load(ctx context.Context, src string) error {
	if p.command == "" {
		return fmt.Errorf("no player command configured")
	}
	if _, err := exec.LookPath(p.command); err != nil {
		return fmt.Errorf("player %q not found: %w", p.command, err)
	}
	// Remote sources (video result URLs) are handed to the player
	// as-is; only local files can be checked up front.
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("media source: %w", err)
		}
	}

	return nil
}

func (p *ExecPlayer) Play(ctx context.Context, src string) error {
	args := append(append([]string{}, p.args...), src)
	cmd := exec.CommandContext(ctx, p.command, args...)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("player exited: %w", err)
	}
	return nil
}
