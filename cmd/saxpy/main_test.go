package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

func runCommand(t *testing.T, args ...string) ([]result, error) {
	t.Helper()
	cmd := newCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--warmup", "1", "--iter", "2", "--format", "json"}, args...))
	if err := cmd.Execute(); err != nil {
		return nil, err
	}
	var doc struct {
		Results []result `json:"results"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &doc))
	return doc.Results, nil
}

func TestSaxpyCommand(t *testing.T) {
	results, err := runCommand(t, "--size", "10", "--seed", "3", "--scalar", "1.5")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "cpu serial", results[0].Name)
	assert.Equal(t, "REF", results[0].Status)
	for _, r := range results[1:] {
		assert.Equal(t, "PASS", r.Status, r.Name)
	}
}

func TestSaxpyRandomSeed(t *testing.T) {
	results, err := runCommand(t, "--size", "4")
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSaxpySizeLimit(t *testing.T) {
	_, err := runCommand(t, "--size", "31")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size must be at most 30")
}
