package pubsub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/JakeFAU/predb-announcer/internal/release"
)

func TestStoreRecordPublishesJSON(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv := pstest.NewServer()
	defer srv.Close()

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client, err := pubsub.NewClient(ctx, "project-id", option.WithGRPCConn(conn))
	require.NoError(t, err)
	defer client.Close()

	topic, err := client.CreateTopic(ctx, "releases")
	require.NoError(t, err)

	publisher := New(topic)
	defer publisher.Stop()

	rec := release.Record{
		Title:    "Some.Game.NSW-VENOM",
		TitleID:  "0100ABCDEF123456",
		MaskedID: "0100ABCDEF122000",
	}
	require.NoError(t, publisher.StoreRecord(ctx, rec))

	messages := srv.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "0100ABCDEF123456", messages[0].Attributes["title_id"])
	require.Equal(t, "0100ABCDEF122000", messages[0].Attributes["masked_id"])

	var decoded release.Record
	require.NoError(t, json.Unmarshal(messages[0].Data, &decoded))
	require.Equal(t, rec, decoded)
}

func TestPublishWithoutTopic(t *testing.T) {
	t.Parallel()

	_, err := New(nil).Publish(context.Background(), map[string]string{}, nil)
	require.Error(t, err)
}
