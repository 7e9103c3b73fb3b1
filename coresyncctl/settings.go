package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"bringyour.com/coresync/remote"
)

// Settings is the YAML settings file of the cli. Missing keys keep their defaults.
//
//	demo:
//	  albums: 20
//	loopback:
//	  fixed_delay: 10ms
//	  loss_fraction: 0.1
type Settings struct {
	Demo     DemoSettings           `yaml:"demo"`
	Loopback LoopbackSettingsConfig `yaml:"loopback"`
	Handler  HandlerSettingsConfig  `yaml:"handler"`
}

type DemoSettings struct {
	InstanceId     string        `yaml:"instance_id"`
	Name           string        `yaml:"name"`
	Albums         int           `yaml:"albums"`
	TracksPerAlbum int           `yaml:"tracks_per_album"`
	PageSize       int           `yaml:"page_size"`
	TotalCount     int           `yaml:"total_count"`
	Timeout        time.Duration `yaml:"timeout"`
}

type LoopbackSettingsConfig struct {
	FixedDelay        time.Duration `yaml:"fixed_delay"`
	BufferSize        int           `yaml:"buffer_size"`
	SendTimeout       time.Duration `yaml:"send_timeout"`
	LossFraction      float64       `yaml:"loss_fraction"`
	DuplicateFraction float64       `yaml:"duplicate_fraction"`
}

type HandlerSettingsConfig struct {
	InvokeTimeout time.Duration `yaml:"invoke_timeout"`
}

func DefaultSettings() *Settings {
	loopbackSettings := remote.DefaultLoopbackSettings()
	handlerSettings := remote.DefaultMessageHandlerSettings()
	return &Settings{
		Demo: DemoSettings{
			InstanceId:     "demo",
			Name:           "Demo core",
			Albums:         10,
			TracksPerAlbum: 3,
			PageSize:       10,
			TotalCount:     100,
			Timeout:        10 * time.Second,
		},
		Loopback: LoopbackSettingsConfig{
			FixedDelay:        loopbackSettings.FixedDelay,
			BufferSize:        loopbackSettings.BufferSize,
			SendTimeout:       loopbackSettings.SendTimeout,
			LossFraction:      loopbackSettings.LossFraction,
			DuplicateFraction: loopbackSettings.DuplicateFraction,
		},
		Handler: HandlerSettingsConfig{
			InvokeTimeout: handlerSettings.InvokeTimeout,
		},
	}
}

func LoadSettings(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSettings(b)
}

func ParseSettings(b []byte) (*Settings, error) {
	settings := DefaultSettings()
	if err := yaml.Unmarshal(b, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (self *Settings) Yaml() ([]byte, error) {
	return yaml.Marshal(self)
}

func (self *Settings) LoopbackSettings() *remote.LoopbackSettings {
	return &remote.LoopbackSettings{
		FixedDelay:        self.Loopback.FixedDelay,
		BufferSize:        self.Loopback.BufferSize,
		SendTimeout:       self.Loopback.SendTimeout,
		LossFraction:      self.Loopback.LossFraction,
		DuplicateFraction: self.Loopback.DuplicateFraction,
	}
}

func (self *Settings) MessageHandlerSettings() *remote.MessageHandlerSettings {
	return &remote.MessageHandlerSettings{
		InvokeTimeout: self.Handler.InvokeTimeout,
	}
}
