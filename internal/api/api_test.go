// ABOUTME: Tests for the typed services against the fake backend
// ABOUTME: Exercises every resource through a real gateway client

package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/predictera-console/internal/apitest"
	"github.com/2389/predictera-console/internal/credentials"
	"github.com/2389/predictera-console/internal/gateway"
)

func newClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer(t)
	gw, err := gateway.New(gateway.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, credentials.NewMemoryStore(credentials.Pair{}), nil)
	require.NoError(t, err)
	c := New(gw)
	require.NoError(t, c.Auth.Login(context.Background(), "admin", "secret"))
	return c, srv
}

func TestLoginThenListMachinesInServerOrder(t *testing.T) {
	c, srv := newClient(t)
	srv.AddMachine("Mill 3", "H")
	srv.AddMachine("Lathe 1", "L")
	srv.AddMachine("Drill 2", "M")

	machines, err := c.Machines.List(context.Background())
	require.NoError(t, err)

	var names []string
	for _, m := range machines {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Mill 3", "Lathe 1", "Drill 2"}, names)
	assert.False(t, machines[0].Timestamp.IsZero())
}

func TestMachines_CRUD(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	id, err := c.Machines.Create(ctx, MachineInput{Name: "Press", Type: "M"})
	require.NoError(t, err)
	require.NotZero(t, id)

	require.NoError(t, c.Machines.Update(ctx, id, MachineInput{Name: "Press 2", Type: "H"}))

	m, err := c.Machines.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Press 2", m.Name)
	assert.Equal(t, "H", m.Type)

	require.NoError(t, c.Machines.Delete(ctx, id))
	_, err = c.Machines.Get(ctx, id)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestMachines_CreateValidation(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Machines.Create(context.Background(), MachineInput{})
	require.Error(t, err)
	assert.Equal(t, gateway.KindValidation, gateway.KindOf(err))
	assert.Equal(t, http.StatusBadRequest, gateway.StatusOf(err))
}

func TestDiagnostics(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	m := srv.AddMachine("Mill", "M")
	other := srv.AddMachine("Lathe", "L")

	first, err := c.Diagnostics.Run(ctx, m.ID)
	require.NoError(t, err)
	second, err := c.Diagnostics.Run(ctx, m.ID)
	require.NoError(t, err)
	assert.Greater(t, second, first)

	latest, err := c.Diagnostics.Latest(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, m.ID, latest.MachineID)
	require.NotNil(t, latest.MostLikelyFailure)
	assert.Equal(t, "TWF", *latest.MostLikelyFailure)
	assert.InDelta(t, 0.3, latest.FailureTypeProbabilities.TWF, 1e-9)
	assert.InDelta(t, 0.58, latest.FailurePrediction.Confidence, 1e-9)

	history, err := c.Diagnostics.History(ctx, m.ID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, second, history[0].ID)

	all, err := c.Diagnostics.History(ctx, m.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = c.Diagnostics.Latest(ctx, other.ID)
	assert.ErrorIs(t, err, gateway.ErrNotFound)

	bulk, err := c.Diagnostics.Bulk(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, bulk.Total)
	assert.Equal(t, 2, bulk.SuccessCount)
	assert.Empty(t, bulk.Failed)

	latestAll, err := c.Diagnostics.AllLatest(ctx)
	require.NoError(t, err)
	assert.Len(t, latestAll, 2)
}

func TestSensors(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	m := srv.AddMachine("Mill", "M")

	for i := range 3 {
		_, err := c.Sensors.Create(ctx, SensorReading{
			MachineID:       m.ID,
			AirTemp:         298.1 + float64(i),
			ProcessTemp:     308.6,
			RotationalSpeed: 1551,
			Torque:          42.8,
			ToolWear:        float64(i),
		})
		require.NoError(t, err)
	}

	history, err := c.Sensors.History(ctx, m.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.InDelta(t, 1.0, history[0].ToolWear, 1e-9)

	latest, err := c.Sensors.Latest(ctx, m.ID)
	require.NoError(t, err)
	assert.InDelta(t, 300.1, latest.AirTemp, 1e-9)

	_, err = c.Sensors.Create(ctx, SensorReading{MachineID: 9999})
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestUsers(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	id, err := c.Users.Register(ctx, NewUser{Username: "tech", Password: "pw", Fullname: "Field Tech", Role: "technician"})
	require.NoError(t, err)

	users, err := c.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "tech", users[0].Username)

	u, err := c.Users.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Field Tech", u.Fullname)

	_, err = c.Users.Register(ctx, NewUser{Username: "tech", Password: "pw"})
	assert.ErrorIs(t, err, gateway.ErrValidation)

	require.NoError(t, c.Users.Delete(ctx, id))
	_, err = c.Users.Get(ctx, id)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestNotifications(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	srv.AddNotification("CNC Machine A", "High risk score detected", LevelCritical)

	id, err := c.Notifications.Create(ctx, NewNotification{MachineName: "CNC Machine B", Message: "Tool wear approaching limit", Level: LevelWarning})
	require.NoError(t, err)

	list, err := c.Notifications.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, LevelCritical, list[0].Level)

	require.NoError(t, c.Notifications.Delete(ctx, id))
	list, err = c.Notifications.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAgent_ChatAndHistory(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	reply, err := c.Agent.Chat(ctx, "How is machine 3?", nil)
	require.NoError(t, err)
	assert.Equal(t, "You said: How is machine 3?", reply.Response)
	assert.Equal(t, []string{"Google Gemini AI"}, reply.Sources)
	require.NotZero(t, reply.ConversationID)

	id := reply.ConversationID
	_, err = c.Agent.Chat(ctx, "And machine 4?", &id)
	require.NoError(t, err)
	assert.Equal(t, 1, srv.ConversationCount())

	msgs, err := c.Agent.Messages(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[3].Role)

	recent, err := c.Agent.Messages(ctx, id, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	convs, err := c.Agent.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "How is machine 3?", convs[0].DisplayTitle())
	assert.Equal(t, 4, convs[0].MessageCount)

	require.NoError(t, c.Agent.DeleteConversation(ctx, id))
	_, err = c.Agent.Messages(ctx, id, 0)
	assert.ErrorIs(t, err, gateway.ErrNotFound)
}

func TestAuth_StatusAndLogout(t *testing.T) {
	c, _ := newClient(t)
	ctx := context.Background()

	st, err := c.Auth.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.LoggedIn)
	assert.True(t, st.HasRefreshToken)
	assert.Nil(t, st.Claims, "fake tokens are not JWTs")

	require.NoError(t, c.Auth.Logout(ctx))
	st, err = c.Auth.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.LoggedIn)

	assert.Error(t, c.Auth.Login(ctx, "", ""))
}

func TestWithLimit(t *testing.T) {
	assert.Equal(t, "/x", withLimit("/x", 0))
	assert.Equal(t, "/x?limit=5", withLimit("/x", 5))
	assert.Equal(t, "/api/diagnostics/7/history", idPath(diagnosticsPath, 7, "history"))
}
