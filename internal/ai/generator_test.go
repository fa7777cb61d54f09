package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sproutbook/seedscan/pkg/anthropic"
	"github.com/sproutbook/seedscan/pkg/perplexity"
)

type fakeSearch struct {
	lastReq perplexity.ChatCompletionRequest
	reply   string
	err     error
}

func (f *fakeSearch) ChatCompletion(_ context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &perplexity.ChatCompletionResponse{
		Choices: []perplexity.Choice{{Message: perplexity.Message{Content: f.reply}}},
	}, nil
}

type fakeDirect struct {
	lastReq anthropic.MessageRequest
	reply   string
}

func (f *fakeDirect) CreateMessage(_ context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: f.reply}},
	}, nil
}

func TestGenerate_SearchRoutesToPerplexity(t *testing.T) {
	search := &fakeSearch{reply: `{"variety":"Roma"}`}
	r := NewRouter(search, &fakeDirect{})

	out, err := r.Generate(context.TODO(), "extract this", "https://www.vendor.example/products/roma", true)
	require.NoError(t, err)
	assert.Equal(t, `{"variety":"Roma"}`, out)
	assert.Equal(t, []string{"vendor.example"}, search.lastReq.SearchDomainFilter)
	require.Len(t, search.lastReq.Messages, 1)
	assert.Equal(t, "extract this", search.lastReq.Messages[0].Content)
}

func TestGenerate_NoURLSkipsDomainFilter(t *testing.T) {
	search := &fakeSearch{reply: "ok"}
	r := NewRouter(search, &fakeDirect{})

	_, err := r.Generate(context.TODO(), "find a photo", "", true)
	require.NoError(t, err)
	assert.Empty(t, search.lastReq.SearchDomainFilter)
}

func TestGenerate_DirectRoutesToAnthropic(t *testing.T) {
	direct := &fakeDirect{reply: `{"variety":"Clemson Spineless"}`}
	r := NewRouter(&fakeSearch{}, direct, WithDirectModel("claude-haiku-4-5-20251001"), WithMaxTokens(512))

	out, err := r.Generate(context.TODO(), "rescue this", "https://vendor.example/x", false)
	require.NoError(t, err)
	assert.Equal(t, `{"variety":"Clemson Spineless"}`, out)
	assert.Equal(t, "claude-haiku-4-5-20251001", direct.lastReq.Model)
	assert.Equal(t, int64(512), direct.lastReq.MaxTokens)
}

func TestGenerate_MissingClients(t *testing.T) {
	r := NewRouter(nil, nil)

	_, err := r.Generate(context.TODO(), "p", "", true)
	assert.Error(t, err)

	_, err = r.Generate(context.TODO(), "p", "", false)
	assert.Error(t, err)
}
