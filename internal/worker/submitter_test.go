package worker

import (
	"context"
	"errors"
	"testing"

	"logship/internal/metrics"
	"logship/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitEmptyBatchSkipsCall(t *testing.T) {
	logs := &fakeLogs{}
	s := NewSubmitter(logs, metrics.New(), 0)

	tok := aws.String("keep")
	next, err := s.Submit(context.Background(), testDest(), nil, tok)
	require.NoError(t, err)
	assert.Same(t, tok, next)
	assert.Equal(t, 0, logs.putCount())
}

func TestSubmitChainsSequenceToken(t *testing.T) {
	logs := &fakeLogs{}
	m := metrics.New()
	s := NewSubmitter(logs, m, 0)
	dest := testDest()

	first, err := s.Submit(context.Background(), dest, model.Batch{{Timestamp: 1, Message: "a"}}, nil)
	require.NoError(t, err)
	assert.Nil(t, logs.put(0).SequenceToken)

	_, err = s.Submit(context.Background(), dest, model.Batch{{Timestamp: 2, Message: "b"}}, first)
	require.NoError(t, err)
	assert.Equal(t, aws.ToString(first), aws.ToString(logs.put(1).SequenceToken))

	in := logs.put(1)
	assert.Equal(t, "group", aws.ToString(in.LogGroupName))
	assert.Equal(t, "module-test/abc", aws.ToString(in.LogStreamName))
	assert.Equal(t, int64(2), aws.ToInt64(in.LogEvents[0].Timestamp))

	assert.Equal(t, int64(2), m.BatchesSubmittedTotal)
	assert.Equal(t, int64(2), m.EventsSubmittedTotal)
}

func TestSubmitEmptyTokenIsOmitted(t *testing.T) {
	logs := &fakeLogs{}
	s := NewSubmitter(logs, metrics.New(), 0)

	_, err := s.Submit(context.Background(), testDest(), model.Batch{{Timestamp: 1, Message: "a"}}, aws.String(""))
	require.NoError(t, err)
	assert.Nil(t, logs.put(0).SequenceToken)
}

func TestSubmitFailureWrapsErrSubmission(t *testing.T) {
	logs := &fakeLogs{putErr: errors.New("boom")}
	m := metrics.New()
	s := NewSubmitter(logs, m, 0)

	tok := aws.String("t9")
	next, err := s.Submit(context.Background(), testDest(), model.Batch{{Timestamp: 1, Message: "a"}}, tok)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmission))
	assert.Same(t, tok, next)
	assert.Equal(t, int64(1), m.SubmitErrorsTotal)
}

func TestCreateStream(t *testing.T) {
	logs := &fakeLogs{}
	m := metrics.New()
	s := NewSubmitter(logs, m, 0)

	require.NoError(t, s.CreateStream(context.Background(), testDest()))
	assert.Equal(t, []string{"module-test/abc"}, logs.streams)
	assert.Equal(t, int64(1), m.StreamsCreatedTotal)

	logs.createErr = errors.New("ResourceNotFoundException")
	err := s.CreateStream(context.Background(), testDest())
	assert.True(t, errors.Is(err, ErrStreamCreation))
}
