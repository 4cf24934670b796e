package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"gpsbridge/internal/constants"
	"gpsbridge/internal/models"
	"gpsbridge/pkg/identity"
	"gpsbridge/pkg/mqtt"
	"gpsbridge/pkg/power"
)

// CommandService executes power commands received over MQTT and
// publishes a response for each one on the response topic.
type CommandService struct {
	subTopic   string
	qos        int
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	powerCtl   power.Controller
	logger     zerolog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewCommandService creates the command handler.
func NewCommandService(subTopic string, qos int, deviceInfo identity.DeviceInfoInterface,
	mqttClient mqtt.MQTTClient, powerCtl power.Controller, logger zerolog.Logger) *CommandService {
	return &CommandService{
		subTopic:   subTopic,
		qos:        qos,
		deviceInfo: deviceInfo,
		mqttClient: mqttClient,
		powerCtl:   powerCtl,
		logger:     logger,
	}
}

// Start subscribes to the device's command topic.
func (cs *CommandService) Start() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.ctx != nil {
		return errors.New("command service is already running")
	}
	cs.ctx, cs.cancel = context.WithCancel(context.Background())

	topic := cs.subTopic + "/" + cs.deviceInfo.GetDeviceID()
	token := cs.mqttClient.Subscribe(topic, byte(cs.qos), cs.HandleCommand)
	if token.Wait() && token.Error() != nil {
		cs.cancel()
		cs.ctx = nil
		cs.cancel = nil
		return fmt.Errorf("failed to subscribe to %s: %w", topic, token.Error())
	}
	cs.logger.Info().Str("topic", topic).Msg("Command service subscribed")
	return nil
}

// Stop unsubscribes from the command topic.
func (cs *CommandService) Stop() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.ctx == nil {
		return errors.New("command service is not running")
	}
	topic := cs.subTopic + "/" + cs.deviceInfo.GetDeviceID()
	token := cs.mqttClient.Unsubscribe(topic)
	if token.Wait() && token.Error() != nil {
		cs.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to unsubscribe")
	}
	cs.cancel()
	cs.ctx = nil
	cs.cancel = nil
	cs.logger.Info().Msg("Command service stopped")
	return nil
}

// HandleCommand processes one command message.
func (cs *CommandService) HandleCommand(client MQTT.Client, msg MQTT.Message) {
	var req models.CmdRequest
	if err := json.Unmarshal(msg.Payload(), &req); err != nil {
		cs.logger.Error().Err(err).Msg("Invalid command payload")
		return
	}
	cs.publishResponse(cs.execute(req))
}

// execute applies the command against the power controller. The response
// always reports the rail state after the command.
func (cs *CommandService) execute(req models.CmdRequest) models.CmdResponse {
	resp := models.CmdResponse{
		DeviceID:  cs.deviceInfo.GetDeviceID(),
		RequestID: req.RequestID,
		UserID:    req.UserID,
		Command:   req.Command,
		Status:    constants.CommandStatusSuccess,
		Timestamp: time.Now().UTC(),
	}

	var err error
	switch req.Command {
	case constants.CommandPowerOn:
		err = cs.powerCtl.On()
	case constants.CommandPowerOff:
		err = cs.powerCtl.Off()
	case constants.CommandPowerStatus:
		// state query only
	default:
		err = fmt.Errorf("unknown command %q", req.Command)
	}
	if err != nil {
		resp.Status = constants.CommandStatusFailed
		resp.Error = err.Error()
	}

	resp.Power = constants.PowerStateOff
	if cs.powerCtl.State() {
		resp.Power = constants.PowerStateOn
	}
	return resp
}

func (cs *CommandService) publishResponse(resp models.CmdResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		cs.logger.Error().Err(err).Msg("Failed to marshal command response")
		return
	}
	topic := fmt.Sprintf("%s/%s/response", cs.subTopic, cs.deviceInfo.GetDeviceID())
	token := cs.mqttClient.Publish(topic, byte(cs.qos), false, payload)
	if token.Wait() && token.Error() != nil {
		cs.logger.Error().Err(token.Error()).Str("topic", topic).Msg("Failed to publish command response")
		return
	}
	cs.logger.Info().Str("command", resp.Command).Str("status", resp.Status).Str("power", resp.Power).Msg("Command handled")
}
