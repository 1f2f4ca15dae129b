package sns

import (
	"encoding/json"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/go-api-auth/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishInput(t *testing.T) {
	task := domain.Task{ID: "01J", Kind: domain.TaskSendVerificationCode, Email: "a@x.com", Code: 123456, CreatedAt: 1700000000}

	in, err := publishInput("arn:aws:sns:us-east-1:000000000000:auth-tasks", task)
	require.NoError(t, err)

	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:auth-tasks", aws.ToString(in.TopicArn))
	assert.Equal(t, "send_verification_code", aws.ToString(in.MessageAttributes["kind"].StringValue))

	var got domain.Task
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &got))
	assert.Equal(t, task, got)
}
