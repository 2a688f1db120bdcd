package nirs

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/nirs/internal/ollama"
)

// captureClient records the conversation and returns one canned answer.
type captureClient struct {
	answer   string
	err      error
	messages []ollama.Message
}

func (c *captureClient) Chat(ctx context.Context, messages []ollama.Message) (string, error) {
	c.messages = messages
	return c.answer, c.err
}

func TestLLMSynthesizeParsesAnswer(t *testing.T) {
	client := &captureClient{answer: "Sure: <rule>-A FORWARD -s 66.0.0.6 -j DROP</rule>"}
	s := NewLLM(client, 10)

	rule, err := s.Synthesize(context.Background(), Evidence{
		AlertWindow: repeatFlows("66.0.0.6", 3, 0),
		Status:      "[Empty]",
	})
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "-A FORWARD -s 66.0.0.6 -j DROP", rule.String())

	require.Len(t, client.messages, 2)
	assert.Equal(t, "system", client.messages[0].Role)
	assert.Contains(t, client.messages[1].Content, "66.0.0.6")
	assert.Contains(t, client.messages[1].Content, "[Empty]")
}

func TestLLMSynthesizeTailLimit(t *testing.T) {
	client := &captureClient{answer: "<rule>none-parsable</rule>"}
	s := NewLLM(client, 2)

	_, err := s.Synthesize(context.Background(), Evidence{
		AlertWindow: repeatFlows("66.0.0.6", 10, 0),
	})
	require.NoError(t, err)

	// Only the 2 tail rows (plus header) are rendered per window.
	user := client.messages[1].Content
	assert.Equal(t, 2, strings.Count(user, "66.0.0.6"))
}

func TestLLMAbstainsOnInvalidRule(t *testing.T) {
	client := &captureClient{answer: "<rule>-A INPUT -s 1.2.3.4 -j ACCEPT</rule>"}
	s := NewLLM(client, 10)

	rule, err := s.Synthesize(context.Background(), Evidence{AlertWindow: repeatFlows("66.0.0.6", 2, 0)})
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestLLMAbstainsWithoutTags(t *testing.T) {
	client := &captureClient{answer: "I cannot help with that."}
	s := NewLLM(client, 10)

	rule, err := s.Synthesize(context.Background(), Evidence{AlertWindow: repeatFlows("66.0.0.6", 2, 0)})
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestLLMPropagatesTransportError(t *testing.T) {
	client := &captureClient{err: fmt.Errorf("connection refused")}
	s := NewLLM(client, 10)

	_, err := s.Synthesize(context.Background(), Evidence{AlertWindow: repeatFlows("66.0.0.6", 2, 0)})
	require.Error(t, err)
}

func TestFlowsCSV(t *testing.T) {
	table := repeatFlows("10.0.0.1", 1, 0)
	table[0].SrcPort = 1390
	table[0].DstPort = 53
	table[0].Protocol = "udp"
	table[0].SrcData = 132
	table[0].DstData = 164

	csv := flowsCSV(table, 10)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "src_ip,dst_ip,protocol,src_port,dst_port,src_data,dst_data", lines[0])
	assert.Equal(t, "10.0.0.1,198.51.0.0,udp,1390,53,132,164", lines[1])

	empty := flowsCSV(nil, 10)
	assert.Equal(t, "src_ip,dst_ip,protocol,src_port,dst_port,src_data,dst_data\n", empty)
}
