// Package firebaseapp initializes the Firebase app shared by the Firestore
// store and ID-token verification.
package firebaseapp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// New creates the app. An empty credentialsFile falls back to Application
// Default Credentials, which also covers the emulators.
func New(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase: error initializing app: %w", err)
	}
	return app, nil
}

// Firestore returns a Firestore client for app.
func Firestore(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
	}
	return client, nil
}

// Auth returns an Auth client for app.
func Auth(ctx context.Context, app *firebase.App) (*auth.Client, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: error getting Auth client: %w", err)
	}
	return client, nil
}
