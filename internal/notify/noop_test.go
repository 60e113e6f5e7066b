package notify

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/restockd/restockd/pkg/logger"
)

func TestNoOpNotifier_Send(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewNoOpNotifier(logger.NewWithWriter(&buf, "debug", "text"))

	require.NoError(t, n.Send(context.Background(), "report body"))
	require.Contains(t, buf.String(), "notification discarded")
}
