package googlefit

import (
	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var sourcesYAML []byte

type sourceCatalog struct {
	StepSources   []string `yaml:"step_sources"`
	CalorieSource string   `yaml:"calorie_source"`
}

var sources = loadSourceCatalog()

func loadSourceCatalog() sourceCatalog {
	var cat sourceCatalog
	if err := yaml.Unmarshal(sourcesYAML, &cat); err != nil {
		panic("googlefit: invalid embedded sources.yaml: " + err.Error())
	}
	return cat
}
