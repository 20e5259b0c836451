package db

import (
	"context"
	"encoding/base64"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"keyvault-backend-go/internal/config"
)

// Clients bundles the Firebase-backed clients the repositories and the auth
// middleware depend on.
type Clients struct {
	Firestore *firestore.Client
	Auth      *auth.Client
}

// InitFirebase initializes the Firebase Admin SDK and returns the Firestore
// and Auth clients. Credentials come from a service account file path, a
// base64-encoded service account JSON, or Application Default Credentials,
// in that order of preference.
func InitFirebase(ctx context.Context, appConfig *config.Config, logger *zap.Logger) (*Clients, error) {
	if appConfig == nil {
		return nil, fmt.Errorf("InitFirebase: appConfig cannot be nil")
	}

	var credsOption option.ClientOption
	switch {
	case appConfig.GoogleApplicationCredentials != "":
		logger.Info("Initializing Firebase with credentials file",
			zap.String("path", appConfig.GoogleApplicationCredentials))
		credsOption = option.WithCredentialsFile(appConfig.GoogleApplicationCredentials)
	case appConfig.FirebaseServiceAccountJSONBase64 != "":
		logger.Info("Initializing Firebase with base64-encoded service account JSON")
		decoded, err := base64.StdEncoding.DecodeString(appConfig.FirebaseServiceAccountJSONBase64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode FIREBASE_SERVICE_ACCOUNT_JSON_BASE64: %w", err)
		}
		credsOption = option.WithCredentialsJSON(decoded)
	default:
		logger.Info("Initializing Firebase using Application Default Credentials")
	}

	fbConfig := &firebase.Config{ProjectID: appConfig.FirebaseProjectID}

	var app *firebase.App
	var err error
	if credsOption != nil {
		app, err = firebase.NewApp(ctx, fbConfig, credsOption)
	} else {
		app, err = firebase.NewApp(ctx, fbConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("app.Firestore: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		fsClient.Close()
		return nil, fmt.Errorf("app.Auth: %w", err)
	}

	return &Clients{Firestore: fsClient, Auth: authClient}, nil
}
