package notifier

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"google.golang.org/api/option"
)

// PushNotifier dispatches pickup/completion/admin-alert notifications
// through Firebase Cloud Messaging and admin alerts additionally through
// Twilio SMS. Failures are logged and swallowed: the engine's guarantee is
// at-most-once invocation, not at-least-once delivery.
type PushNotifier struct {
	fcm          *messaging.Client
	twilioClient *twilio.RestClient
	fromNumber   string
	adminPhone   string
	log          zerolog.Logger
}

// NewPushNotifier initializes the Firebase and Twilio clients used for
// production delivery.
func NewPushNotifier(ctx context.Context, credentialsFile, twilioSID, twilioToken, fromNumber, adminPhone string, log zerolog.Logger) (*PushNotifier, error) {
	opt := option.WithCredentialsFile(credentialsFile)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	fcm, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize fcm client: %w", err)
	}

	twilioClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: twilioSID,
		Password: twilioToken,
	})

	return &PushNotifier{
		fcm:          fcm,
		twilioClient: twilioClient,
		fromNumber:   fromNumber,
		adminPhone:   adminPhone,
		log:          log,
	}, nil
}

func (n *PushNotifier) PickupArrival(ctx context.Context, vehicleID, tripID string, lat, lon float64) {
	msg := &messaging.Message{
		Topic: "fleet-" + vehicleID,
		Notification: &messaging.Notification{
			Title: "Pickup reached",
			Body:  fmt.Sprintf("Vehicle %s arrived at a pickup point", vehicleID),
		},
		Data: map[string]string{
			"tripId": tripID,
			"lat":    fmt.Sprintf("%f", lat),
			"lon":    fmt.Sprintf("%f", lon),
		},
	}
	if _, err := n.fcm.Send(ctx, msg); err != nil {
		n.log.Warn().Err(err).Str("trip_id", tripID).Msg("push pickup arrival failed")
	}
}

func (n *PushNotifier) TripCompletion(ctx context.Context, vehicleID, tripID string) {
	msg := &messaging.Message{
		Topic: "fleet-" + vehicleID,
		Notification: &messaging.Notification{
			Title: "Trip completed",
			Body:  fmt.Sprintf("Vehicle %s reached the office", vehicleID),
		},
		Data: map[string]string{"tripId": tripID},
	}
	if _, err := n.fcm.Send(ctx, msg); err != nil {
		n.log.Warn().Err(err).Str("trip_id", tripID).Msg("push trip completion failed")
	}
}

func (n *PushNotifier) AdminAlert(ctx context.Context, vehicleID, tripID, reason string) {
	msg := &messaging.Message{
		Topic: "fleet-admin",
		Notification: &messaging.Notification{
			Title: "Manual closure outside geofence",
			Body:  fmt.Sprintf("Vehicle %s closed trip %s: %s", vehicleID, tripID, reason),
		},
		Data: map[string]string{"tripId": tripID, "reason": reason},
	}
	if _, err := n.fcm.Send(ctx, msg); err != nil {
		n.log.Warn().Err(err).Str("trip_id", tripID).Msg("push admin alert failed")
	}

	if n.adminPhone == "" {
		return
	}
	params := &twilioApi.CreateMessageParams{}
	params.SetTo(n.adminPhone)
	params.SetFrom(n.fromNumber)
	params.SetBody(fmt.Sprintf("Vehicle %s manually closed trip %s outside a geofence: %s", vehicleID, tripID, reason))
	if _, err := n.twilioClient.Api.CreateMessage(params); err != nil {
		n.log.Warn().Err(err).Str("trip_id", tripID).Msg("sms admin alert failed")
	}
}
