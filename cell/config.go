package cell

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"wandelscript/types"
)

// RobotConfig describes one simulated robot in a cell file
type RobotConfig struct {
	ID          string                `yaml:"id"`
	InitialPose []float64             `yaml:"initial_pose"`
	Tools       map[string][]float64  `yaml:"tools"`
}

// IOConfig describes one IO device in a cell file
type IOConfig struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

// Config is the YAML description of a simulated robot cell
type Config struct {
	Robots []RobotConfig `yaml:"robots"`
	IOs    []IOConfig    `yaml:"ios"`
}

// LoadConfig reads a cell configuration file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML cell configuration
func ParseConfig(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid cell configuration: %w", err)
	}
	for _, robot := range config.Robots {
		if robot.ID == "" {
			return nil, fmt.Errorf("invalid cell configuration: robot without id")
		}
		if n := len(robot.InitialPose); n != 0 && n != 6 {
			return nil, fmt.Errorf("invalid cell configuration: robot %s initial_pose needs 6 elements", robot.ID)
		}
		for tool, offset := range robot.Tools {
			if len(offset) != 6 {
				return nil, fmt.Errorf("invalid cell configuration: tool %s of robot %s needs 6 elements", tool, robot.ID)
			}
		}
	}
	return &config, nil
}

// Build constructs a simulated cell from the configuration
func (c *Config) Build() *SimulatedRobotCell {
	var robots []*SimulatedRobot
	for _, rc := range c.Robots {
		config := SimulatedRobotConfig{ID: rc.ID}
		if len(rc.InitialPose) == 6 {
			pose := types.PoseFromTuple(rc.InitialPose)
			config.InitialPose = &pose
		}
		if len(rc.Tools) > 0 {
			config.Tools = make(map[string]types.PoseValue, len(rc.Tools))
			for name, offset := range rc.Tools {
				config.Tools[name] = types.PoseFromTuple(offset)
			}
		}
		robots = append(robots, NewSimulatedRobot(config))
	}
	var devices []Device
	for _, ioc := range c.IOs {
		if ioc.Type == "database" {
			devices = append(devices, NewSimulatedDatabase(ioc.ID, nil))
		} else {
			devices = append(devices, NewSimulatedIO(ioc.ID))
		}
	}
	return NewSimulatedRobotCellWith(robots, devices)
}
