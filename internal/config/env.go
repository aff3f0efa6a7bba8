package config

import (
	"fmt"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment keys recognized in Unix-type environment files.
const (
	envMode        = "FTSWALK_MODE"
	envFollowRoots = "FTSWALK_FOLLOW_ROOTS"
	envXDev        = "FTSWALK_XDEV"
	envDots        = "FTSWALK_DOTS"
	envNoStat      = "FTSWALK_NOSTAT"
	envWhiteout    = "FTSWALK_WHITEOUT"
	envSort        = "FTSWALK_SORT"
	envWorkers     = "FTSWALK_WORKERS"
	envNoHash      = "FTSWALK_NO_HASH"
	envManifest    = "FTSWALK_MANIFEST"
	envLogLevel    = "FTSWALK_LOG_LEVEL"
	envLogFile     = "FTSWALK_LOG_FILE"
)

type envProvider interface {
	Read(filenames ...string) (envMap map[string]string, err error)
}

// GodotenvProvider is an implementation wrapping the Godotenv framework.
type GodotenvProvider struct{}

// Read reads generic Unix-type configuration files into a map (map[key]value).
func (*GodotenvProvider) Read(filenames ...string) (map[string]string, error) {
	data, err := godotenv.Read(filenames...)
	if err != nil {
		return data, fmt.Errorf("(config-godotenv) %w", err)
	}

	return data, nil
}

// EnvHandler overlays settings from environment files onto a [Profile].
type EnvHandler struct {
	Reader envProvider
}

// NewEnvHandler returns a pointer to a new [EnvHandler].
func NewEnvHandler() *EnvHandler {
	return &EnvHandler{Reader: &GodotenvProvider{}}
}

// Apply reads the given environment files and overlays any recognized keys
// onto the profile. Keys not present in the files leave the profile untouched.
func (h *EnvHandler) Apply(p *Profile, filenames ...string) error {
	envMap, err := h.Reader.Read(filenames...)
	if err != nil {
		return err
	}

	if v := mapKeyToString(envMap, envMode); v != "" {
		p.Mode = v
	}

	if v, ok := mapKeyToBool(envMap, envFollowRoots); ok {
		p.FollowRoots = v
	}

	if v, ok := mapKeyToBool(envMap, envXDev); ok {
		p.XDev = v
	}

	if v, ok := mapKeyToBool(envMap, envDots); ok {
		p.SeeDot = v
	}

	if v, ok := mapKeyToBool(envMap, envNoStat); ok {
		p.NoStat = v
	}

	if v, ok := mapKeyToBool(envMap, envWhiteout); ok {
		p.Whiteout = v
	}

	if v := mapKeyToString(envMap, envSort); v != "" {
		p.Sort = v
	}

	if v := mapKeyToInt(envMap, envWorkers); v >= 0 {
		p.Workers = v
	}

	if v, ok := mapKeyToBool(envMap, envNoHash); ok {
		p.NoHash = v
	}

	if v := mapKeyToString(envMap, envManifest); v != "" {
		p.Manifest = v
	}

	if v := mapKeyToString(envMap, envLogLevel); v != "" {
		p.LogLevel = v
	}

	if v := mapKeyToString(envMap, envLogFile); v != "" {
		p.LogFile = v
	}

	return nil
}

func mapKeyToString(envMap map[string]string, key string) string {
	if value, exists := envMap[key]; exists {
		return value
	}

	return ""
}

func mapKeyToInt(envMap map[string]string, key string) int {
	value := mapKeyToString(envMap, key)
	if value == "" {
		return -1
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return -1
	}

	return intValue
}

func mapKeyToBool(envMap map[string]string, key string) (value, exists bool) {
	raw := mapKeyToString(envMap, key)
	if raw == "" {
		return false, false
	}

	boolValue, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}

	return boolValue, true
}
