package dynamo

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	attrKey       = "pk"
	attrValue     = "val"
	attrMembers   = "members"
	attrExpiresAt = "expires_at"

	tableWaitTimeout = 2 * time.Minute
)

// strKey builds a DynamoDB primary key map with a single string attribute.
func strKey(name, value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		name: &types.AttributeValueMemberS{Value: value},
	}
}

// addMemberInput adds member to the string set stored under key.
func addMemberInput(table, key, member string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:                aws.String(table),
		Key:                      strKey(attrKey, key),
		UpdateExpression:         aws.String("ADD #m :m"),
		ExpressionAttributeNames: map[string]string{"#m": attrMembers},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberSS{Value: []string{member}},
		},
	}
}

// removeMemberInput deletes member from the set under key, failing the
// condition when member is not present.
func removeMemberInput(table, key, member string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:                aws.String(table),
		Key:                      strKey(attrKey, key),
		UpdateExpression:         aws.String("DELETE #m :m"),
		ConditionExpression:      aws.String("contains(#m, :v)"),
		ExpressionAttributeNames: map[string]string{"#m": attrMembers},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberSS{Value: []string{member}},
			":v": &types.AttributeValueMemberS{Value: member},
		},
	}
}

func expired(expiresAt int64, now time.Time) bool {
	return expiresAt > 0 && expiresAt <= now.Unix()
}
