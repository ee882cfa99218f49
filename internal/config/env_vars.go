package config

import (
	"fmt"
	"os"
)

type EnvVars struct {
	Port    string `yaml:"port" env:"PORT"`
	AppName string `yaml:"app_name" env:"APP_NAME"`
	Env     string `yaml:"env" env:"ENV"`
	// BaseURL is the public URL of this application (e.g., "https://app.example.com")
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.Port
	if port == "" {
		port = "8080"
	}
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetBaseURL() string {
	return e.BaseURL
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
