package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/oriku/minecraftd/internal/mcproto"
)

func pingPlayers(ctx context.Context, port int) *PlayersInfo {
	deadline := time.Now().Add(2 * time.Second)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	result, err := mcproto.Ping("tcp", fmt.Sprintf("127.0.0.1:%d", port), deadline)
	if err != nil || result.Status == nil || result.Status.Players == nil {
		return nil
	}
	return &PlayersInfo{Online: result.Status.Players.Online, Max: result.Status.Players.Max}
}
</content>
