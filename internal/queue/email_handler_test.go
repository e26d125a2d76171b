package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbot-dev/ledgerbot/constants"
	"github.com/ledgerbot-dev/ledgerbot/internal/entity"
)

func TestEmailHandler_AcknowledgesJob(t *testing.T) {
	h := NewEmailHandler(nil)
	assert.Equal(t, constants.JobTypeEmail, h.Type())

	job := &entity.Job{ID: 1, Type: constants.JobTypeEmail, Payload: []byte(`{"email_id": 5, "user_id": 42}`)}
	require.NoError(t, h.Handle(context.Background(), job))

	bad := &entity.Job{ID: 2, Type: constants.JobTypeEmail, Payload: []byte(`not json`)}
	require.Error(t, h.Handle(context.Background(), bad))
}
