// Package identity resolves inbound usernames to stable Cognito identities.
// It is an indirection step only: when the users table has no item under the
// raw identifier, the Cognito sub and verified email give the profile
// resolver a second and third key to try.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"go.uber.org/zap"

	"github.com/b-max/backend/pkg/logger"
)

var ErrDisabled = errors.New("cognito integration disabled")

type Client struct {
	idp        *cognito.Client
	userPoolID string
}

// NewClient returns nil without error when no user pool is configured; the
// caller treats a nil client as "indirection disabled".
func NewClient(ctx context.Context, region, userPoolID string) (*Client, error) {
	if userPoolID == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("Cognito client initialized", zap.String("user_pool_id", userPoolID))

	return &Client{
		idp:        cognito.NewFromConfig(awsCfg),
		userPoolID: userPoolID,
	}, nil
}

// LookupUser resolves a username to its Cognito sub and verified email.
func (c *Client) LookupUser(ctx context.Context, username string) (sub, email string, err error) {
	if c == nil || c.idp == nil {
		return "", "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := c.idp.AdminGetUser(ctx, &cognito.AdminGetUserInput{
		UserPoolId: aws.String(c.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to look up cognito user %q: %w", username, err)
	}

	for _, attr := range out.UserAttributes {
		if attr.Name == nil || attr.Value == nil {
			continue
		}
		switch *attr.Name {
		case "sub":
			sub = *attr.Value
		case "email":
			email = *attr.Value
		}
	}

	if sub == "" {
		return "", "", fmt.Errorf("cognito user %q has no sub attribute", username)
	}
	return sub, email, nil
}
