// Package config loads front-end settings from the environment and an
// optional .env file. Process environment wins over the file.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/omochice/story-chat/internal/logging"
	"github.com/omochice/story-chat/internal/session"
	"github.com/omochice/story-chat/internal/transport/request"
	"github.com/omochice/story-chat/pkg/protocol"
)

// Transport selects how the front-end talks to the backend.
type Transport string

const (
	TransportSocket  Transport = "ws"
	TransportREST    Transport = "rest"
	TransportGraphQL Transport = "graphql"
)

// Environment keys.
const (
	KeyAPIHost           = "API_HOST"
	KeyWSPort            = "API_WS_PORT"
	KeyRESTPort          = "API_REST_PORT"
	KeyGraphQLPort       = "API_GRAPHQL_PORT"
	KeyStoryID           = "STORY_ID"
	KeyRequestTimeout    = "REQUEST_TIMEOUT"
	KeyPollInterval      = "CHAT_POLL_INTERVAL"
	KeyReconnectInterval = "CHAT_RECONNECT_INTERVAL"
	KeyConnectYield      = "CHAT_CONNECT_YIELD"
	KeyLogLevel          = "LOG_LEVEL"
	KeyLogFormat         = "LOG_FORMAT"
	KeyLogFile           = "LOG_FILE"
)

// Config is the resolved front-end configuration.
type Config struct {
	APIHost        string
	WSPort         string
	RESTPort       string
	GraphQLPort    string
	StoryID        string
	RequestTimeout time.Duration
	Session        session.Config
	Log            logging.Config
}

// Load reads envFile, when it exists, and the process environment. A
// missing file is not an error unless it was asked for explicitly.
func Load(envFile string, explicit bool) (*Config, error) {
	v := viper.New()
	v.SetDefault(KeyStoryID, protocol.DefaultStoryID)
	v.SetDefault(KeyRequestTimeout, request.DefaultTimeout)
	v.SetDefault(KeyPollInterval, time.Duration(0))
	v.SetDefault(KeyReconnectInterval, session.DefaultReconnectInterval)
	v.SetDefault(KeyConnectYield, session.DefaultConnectYield)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrapf(err, "failed to read %s", envFile)
			}
		} else if explicit {
			return nil, errors.Wrapf(err, "env file %s", envFile)
		}
	}
	v.AutomaticEnv()

	cfg := &Config{
		APIHost:        strings.TrimRight(v.GetString(KeyAPIHost), "/"),
		WSPort:         v.GetString(KeyWSPort),
		RESTPort:       v.GetString(KeyRESTPort),
		GraphQLPort:    v.GetString(KeyGraphQLPort),
		StoryID:        v.GetString(KeyStoryID),
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		Log: logging.Config{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
			File:   v.GetString(KeyLogFile),
		},
	}
	cfg.Session = session.Config{
		StoryID:           cfg.StoryID,
		PollInterval:      v.GetDuration(KeyPollInterval),
		ReconnectInterval: v.GetDuration(KeyReconnectInterval),
		ConnectYield:      v.GetDuration(KeyConnectYield),
	}

	return cfg, nil
}

// Address returns the backend address for a transport: API_HOST plus the
// transport's port.
func (c *Config) Address(t Transport) (string, error) {
	if c.APIHost == "" {
		return "", errors.Errorf("%s is not set", KeyAPIHost)
	}

	var key, port string
	switch t {
	case TransportSocket:
		key, port = KeyWSPort, c.WSPort
	case TransportREST:
		key, port = KeyRESTPort, c.RESTPort
	case TransportGraphQL:
		key, port = KeyGraphQLPort, c.GraphQLPort
	default:
		return "", errors.Errorf("unknown transport %q", t)
	}
	if port == "" {
		return "", errors.Errorf("%s is not set", key)
	}
	return c.APIHost + ":" + port, nil
}
