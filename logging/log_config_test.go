package logging

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func verifySetLevels(registry *Registry, expectedMatches map[string]string) bool {
	for name, level := range expectedMatches {
		logger, ok := registry.LoggerNamed(name)
		if !ok || !strings.EqualFold(level, logger.GetLevel().String()) {
			return false
		}
	}
	return true
}

func createTestRegistry(loggerNames []string) *Registry {
	registry := NewRegistry()
	for _, name := range loggerNames {
		registry.Register(name, NewBlankLogger(name))
	}
	return registry
}

func TestValidatePattern(t *testing.T) {
	t.Parallel()

	type testCfg struct {
		pattern string
		isValid bool
	}

	tests := []testCfg{
		{"coordmap.pipeline", true},
		{"coordmap.pipeline.*", true},
		{"coordmap.*.align", true},
		{"coordmap.*.*", true},
		{"*.pipeline", true},
		{"*", true},
		{"capture-sim", true},

		{"coordmap..pipeline", false},
		{"coordmap.pipeline.", false},
		{".coordmap.pipeline", false},
		{"coordmap.pipeline.**", false},
		{"_.coordmap", false},
		{"coordmap.-", false},
		{"coordmap pipeline", false},
	}

	for _, tc := range tests {
		t.Run(tc.pattern, func(t *testing.T) {
			t.Parallel()
			test.That(t, validatePattern(tc.pattern), test.ShouldEqual, tc.isValid)
		})
	}
}

func TestUpdateLoggerRegistry(t *testing.T) {
	type testCfg struct {
		loggerConfig    []LoggerPatternConfig
		loggerNames     []string
		expectedMatches map[string]string
	}

	tests := []testCfg{
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "coordmap.pipeline", Level: "WARN"}},
			loggerNames:  []string{"coordmap.pipeline", "coordmap.pipeline.inbox", "coordmap.capture"},
			expectedMatches: map[string]string{
				"coordmap.pipeline":       "WARN",
				"coordmap.pipeline.inbox": "INFO",
				"coordmap.capture":        "INFO",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{{Pattern: "coordmap.*", Level: "DEBUG"}},
			loggerNames:  []string{"coordmap.pipeline", "coordmap.capture.sim"},
			expectedMatches: map[string]string{
				"coordmap.pipeline":    "DEBUG",
				"coordmap.capture.sim": "DEBUG",
			},
		},
		{
			loggerConfig: []LoggerPatternConfig{
				{Pattern: "coordmap.*", Level: "DEBUG"},
				{Pattern: "coordmap.capture", Level: "ERROR"},
			},
			loggerNames: []string{"coordmap.capture", "coordmap.pipeline"},
			expectedMatches: map[string]string{
				"coordmap.capture":  "ERROR",
				"coordmap.pipeline": "DEBUG",
			},
		},
		{
			loggerConfig:    []LoggerPatternConfig{{Pattern: "_.*.inbox", Level: "DEBUG"}},
			loggerNames:     []string{"coordmap.pipeline.inbox"},
			expectedMatches: map[string]string{"coordmap.pipeline.inbox": "INFO"},
		},
	}

	for _, tc := range tests {
		testRegistry := createTestRegistry(tc.loggerNames)

		err := testRegistry.Update(tc.loggerConfig, INFO, NewBlankLogger("error-logger"))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, verifySetLevels(testRegistry, tc.expectedMatches), test.ShouldBeTrue)
	}
}

func TestRegistryRegisterAppliesConfig(t *testing.T) {
	registry := NewRegistry()
	err := registry.Update([]LoggerPatternConfig{{Pattern: "coordmap.*", Level: "error"}}, INFO, NewBlankLogger("err"))
	test.That(t, err, test.ShouldBeNil)

	first := registry.Register("coordmap.pipeline", NewBlankLogger("coordmap.pipeline"))
	test.That(t, first.GetLevel(), test.ShouldEqual, ERROR)

	second := registry.Register("coordmap.pipeline", NewBlankLogger("other"))
	test.That(t, second, test.ShouldEqual, first)
	test.That(t, registry.Names(), test.ShouldResemble, []string{"coordmap.pipeline"})

	test.That(t, registry.UpdateLoggerLevel("coordmap.pipeline", DEBUG), test.ShouldBeNil)
	test.That(t, first.GetLevel(), test.ShouldEqual, DEBUG)
	test.That(t, registry.UpdateLoggerLevel("missing", DEBUG), test.ShouldNotBeNil)

	test.That(t, registry.Deregister("coordmap.pipeline"), test.ShouldBeTrue)
	test.That(t, registry.Deregister("coordmap.pipeline"), test.ShouldBeFalse)
}

func TestUpdateRejectsBadLevel(t *testing.T) {
	registry := createTestRegistry([]string{"coordmap"})
	err := registry.Update([]LoggerPatternConfig{{Pattern: "coordmap", Level: "loud"}}, INFO, NewBlankLogger("err"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "loud")
}
