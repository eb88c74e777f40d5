// Package mqtt publishes refreshed price curves to an MQTT broker so home
// automation systems can pick them up without polling the HTTP API.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/angas/dayahead-go/calc"
	"github.com/angas/dayahead-go/config"
	"github.com/angas/dayahead-go/coordinator"
)

type Publisher struct {
	client mqtt.Client
	logger *slog.Logger
	prefix string
	coord  *coordinator.Coordinator
}

func New(cnfg config.AppConfigMqtt, coord *coordinator.Coordinator) *Publisher {
	logger := slog.Default().With("module", "mqtt")

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cnfg.Host, cnfg.Port))
	opts.SetClientID("dayahead")
	opts.SetUsername(cnfg.Username)
	opts.SetPassword(cnfg.Password)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(client mqtt.Client) {
		logger.Info("MQTT connected")
	}
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", slog.Any("error", err))
	}

	mqtt.CRITICAL = newMqttLogger(logger, slog.LevelError)
	mqtt.ERROR = newMqttLogger(logger, slog.LevelError)
	mqtt.WARN = newMqttLogger(logger, slog.LevelWarn)

	return &Publisher{
		client: mqtt.NewClient(opts),
		logger: logger,
		prefix: cnfg.GetTopicPrefix(),
		coord:  coord,
	}
}

func (p *Publisher) Connect() error {
	p.logger.Debug("connecting MQTT client")
	if token := p.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (p *Publisher) Disconnect() {
	p.client.Disconnect(250)
}

type curvePayload struct {
	Area         string             `json:"area"`
	Slot         coordinator.Slot   `json:"slot"`
	DeliveryDate string             `json:"delivery_date"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	Quarters     []calc.EnrichedRow `json:"quarters"`
	Hours        []calc.EnrichedRow `json:"hours,omitempty"`
}

// PublishRefresh pushes a refresh summary plus the refreshed day's full
// enriched curve. Curves are published retained so late subscribers get
// the current state immediately.
func (p *Publisher) PublishRefresh(s coordinator.RefreshSummary) {
	p.publish(fmt.Sprintf("%s/%s/refresh", p.prefix, s.Area), false, s)

	record := p.coord.Get(s.Area, s.Slot)
	if record == nil {
		return
	}
	settings := p.coord.Settings(s.Area)
	opts := calc.EnrichOptions{
		EnableKWh:       settings.EnableKWh,
		ConsumerEnabled: settings.ConsumerPriceEnabled,
		EnergyTax:       settings.EnergyTax,
		SupplierMarkup:  settings.SupplierMarkup,
		VAT:             settings.VAT,
	}

	payload := curvePayload{
		Area:         s.Area,
		Slot:         s.Slot,
		DeliveryDate: record.DeliveryDate.String(),
		Currency:     record.Currency,
		Status:       string(record.Status),
		Quarters:     calc.EnrichRows(record.Quarters, opts),
	}
	if settings.EnableHourly {
		payload.Hours = calc.EnrichRows(record.Hours, opts)
	}

	p.publish(fmt.Sprintf("%s/%s/%s", p.prefix, s.Area, s.Slot), true, payload)
}

func (p *Publisher) publish(topic string, retain bool, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("failed to marshal MQTT payload", slog.String("topic", topic), slog.Any("error", err))
		return
	}
	if token := p.client.Publish(topic, 0, retain, data); token.Wait() && token.Error() != nil {
		p.logger.Warn("failed to publish MQTT message", slog.String("topic", topic), slog.Any("error", token.Error()))
	}
}
