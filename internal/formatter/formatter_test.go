package formatter

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"tgform/internal/core"
)

func field(name string, v core.Value) core.Field {
	return core.Field{Name: name, Value: v}
}

func stringField(t *testing.T, p *core.Payload, name string) string {
	t.Helper()
	v, ok := p.Get(name)
	require.True(t, ok, "field %q missing", name)
	s, ok := v.(core.Scalar)
	require.True(t, ok, "field %q is %T, want scalar", name, v)
	str, ok := s.Interface().(string)
	require.True(t, ok, "field %q holds %T, want string", name, s.Interface())
	return str
}

func fileField(t *testing.T, p *core.Payload, name string) core.FileHandle {
	t.Helper()
	v, ok := p.Get(name)
	require.True(t, ok, "field %q missing", name)
	f, ok := v.(core.File)
	require.True(t, ok, "field %q is %T, want file", name, v)
	return f.Handle
}

func TestFormat_PlainMethodEncodesStructures(t *testing.T) {
	payload := core.NewPayload(
		field("chat_id", core.Int(42)),
		field("text", core.String("hello")),
		field("reply_markup", core.NewPayload(
			field("inline_keyboard", core.Sequence{
				core.Sequence{core.NewPayload(
					field("text", core.String("Open")),
					field("url", core.String("https://example.com/?a=1&b=<2>")),
				)},
			}),
		)),
		field("entities", core.Sequence{core.NewPayload(
			field("type", core.String("bold")),
			field("offset", core.Int(0)),
			field("length", core.Int(5)),
		)}),
		field("disable_notification", core.Bool(true)),
	)

	got, err := Format(payload, "sendMessage")
	require.NoError(t, err)

	assert.Equal(t, payload.Keys(), got.Keys())
	assert.Equal(t, core.Int(42), mustGet(t, got, "chat_id"))
	assert.Equal(t, core.String("hello"), mustGet(t, got, "text"))
	assert.Equal(t, core.Bool(true), mustGet(t, got, "disable_notification"))
	assert.Equal(t,
		`{"inline_keyboard":[[{"text":"Open","url":"https://example.com/?a=1&b=<2>"}]]}`,
		stringField(t, got, "reply_markup"))
	assert.Equal(t,
		`[{"type":"bold","offset":0,"length":5}]`,
		stringField(t, got, "entities"))
	assert.True(t, got.IsTransportReady())
}

func TestFormat_EditMessageMedia(t *testing.T) {
	photo := core.NewBytesFile("photo.jpg", []byte("jpeg"))
	payload := core.NewPayload(
		field("chat_id", core.Int(1)),
		field("message_id", core.Int(2)),
		field("media", core.NewPayload(
			field("type", core.String("photo")),
			field("media", core.FileOf(photo)),
		)),
	)

	got, err := Format(payload, "editMessageMedia")
	require.NoError(t, err)

	assert.Equal(t, []string{"chat_id", "message_id", "media", "_file0"}, got.Keys())
	media := stringField(t, got, "media")
	assert.JSONEq(t, `{"type":"photo","media":"attach://_file0"}`, media)
	assert.Same(t, photo, fileField(t, got, "_file0"))
}

func TestFormat_EditMessageMediaWithThumbnail(t *testing.T) {
	video := core.NewBytesFile("clip.mp4", []byte("mp4"))
	thumb := core.NewBytesFile("thumb.jpg", []byte("jpg"))
	payload := core.NewPayload(
		field("media", core.NewPayload(
			field("type", core.String("video")),
			field("media", core.FileOf(video)),
			field("thumbnail", core.FileOf(thumb)),
			field("caption", core.String("clip")),
		)),
	)

	got, err := Format(payload, "editMessageMedia")
	require.NoError(t, err)

	media := stringField(t, got, "media")
	assert.Equal(t, "attach://_file0", gjson.Get(media, "media").String())
	assert.Equal(t, "attach://_file1", gjson.Get(media, "thumbnail").String())
	assert.Equal(t, "clip", gjson.Get(media, "caption").String())
	assert.Same(t, video, fileField(t, got, "_file0"))
	assert.Same(t, thumb, fileField(t, got, "_file1"))
}

func TestFormat_SendMediaGroup(t *testing.T) {
	f1 := core.NewBytesFile("a.jpg", []byte("a"))
	f2 := core.NewBytesFile("b.jpg", []byte("b"))
	payload := core.NewPayload(
		field("chat_id", core.String("@channel")),
		field("media", core.Sequence{
			core.NewPayload(field("media", core.FileOf(f1))),
			core.NewPayload(field("media", core.FileOf(f2))),
		}),
	)

	got, err := Format(payload, "sendMediaGroup")
	require.NoError(t, err)

	assert.JSONEq(t,
		`[{"media":"attach://_file0"},{"media":"attach://_file1"}]`,
		stringField(t, got, "media"))
	assert.Same(t, f1, fileField(t, got, "_file0"))
	assert.Same(t, f2, fileField(t, got, "_file1"))
	assert.Len(t, got.Files(), 2)
}

func TestFormat_SendMediaGroupMixedEntries(t *testing.T) {
	f1 := core.NewBytesFile("a.jpg", []byte("a"))
	f2 := core.NewBytesFile("b.jpg", []byte("b"))
	payload := core.NewPayload(
		field("media", core.Sequence{
			core.NewPayload(
				field("type", core.String("photo")),
				field("media", core.String("AgACAgIAAxkBAAI")),
			),
			core.NewPayload(
				field("type", core.String("photo")),
				field("media", core.FileOf(f1)),
			),
			core.String("not a mapping"),
			core.NewPayload(
				field("type", core.String("video")),
				field("media", core.FileOf(f2)),
			),
		}),
	)

	got, err := Format(payload, "sendMediaGroup")
	require.NoError(t, err)

	media := stringField(t, got, "media")
	assert.Equal(t, "AgACAgIAAxkBAAI", gjson.Get(media, "0.media").String())
	assert.Equal(t, "attach://_file0", gjson.Get(media, "1.media").String())
	assert.Equal(t, "not a mapping", gjson.Get(media, "2").String())
	assert.Equal(t, "attach://_file1", gjson.Get(media, "3.media").String())
	assert.Same(t, f1, fileField(t, got, "_file0"))
	assert.Same(t, f2, fileField(t, got, "_file1"))
}

func TestFormat_PostStory(t *testing.T) {
	story := core.NewBytesFile("story.mp4", []byte("mp4"))
	payload := core.NewPayload(
		field("business_connection_id", core.String("bc")),
		field("content", core.NewPayload(
			field("type", core.String("video")),
			field("video", core.FileOf(story)),
		)),
		field("active_period", core.Int(86400)),
	)

	got, err := Format(payload, "postStory")
	require.NoError(t, err)

	assert.Equal(t, []string{"business_connection_id", "content", "active_period", "_file0"}, got.Keys())
	assert.JSONEq(t, `{"type":"video","video":"attach://_file0"}`, stringField(t, got, "content"))
	assert.Same(t, story, fileField(t, got, "_file0"))
}

func TestFormat_RulesOnlyApplyToTheirMethod(t *testing.T) {
	payload := core.NewPayload(
		field("media", core.NewPayload(field("type", core.String("photo")))),
	)

	got, err := Format(payload, "postStory")
	require.NoError(t, err)

	assert.Equal(t, []string{"media"}, got.Keys())
	assert.Equal(t, `{"type":"photo"}`, stringField(t, got, "media"))
}

func TestFormat_AbsentTargetField(t *testing.T) {
	tests := []struct {
		name   string
		method string
	}{
		{"editMessageMedia", "editMessageMedia"},
		{"sendMediaGroup", "sendMediaGroup"},
		{"postStory", "postStory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := core.NewPayload(
				field("chat_id", core.Int(7)),
				field("caption", core.String("x")),
			)

			got, err := Format(payload, tt.method)
			require.NoError(t, err)
			assert.Equal(t, []string{"chat_id", "caption"}, got.Keys())
			assert.Empty(t, got.Files())
		})
	}
}

func TestFormat_MalformedShapes(t *testing.T) {
	tests := []struct {
		name   string
		method string
		field  string
		value  core.Value
		want   core.Value
	}{
		{
			name:   "media group scalar",
			method: "sendMediaGroup",
			field:  "media",
			value:  core.String("attach://already"),
			want:   core.String("attach://already"),
		},
		{
			name:   "media group mapping",
			method: "sendMediaGroup",
			field:  "media",
			value:  core.NewPayload(field("type", core.String("photo"))),
			want:   core.String(`{"type":"photo"}`),
		},
		{
			name:   "edit media sequence",
			method: "editMessageMedia",
			field:  "media",
			value:  core.Sequence{core.String("a")},
			want:   core.String(`["a"]`),
		},
		{
			name:   "story content null",
			method: "postStory",
			field:  "content",
			value:  core.Null(),
			want:   core.Null(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := core.NewPayload(field(tt.field, tt.value))

			got, err := Format(payload, tt.method)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.field}, got.Keys())
			assert.Equal(t, tt.want, mustGet(t, got, tt.field))
		})
	}
}

func TestFormat_PassThroughMatchesPlainEncoding(t *testing.T) {
	payload := core.NewPayload(
		field("chat_id", core.Int(1)),
		field("media", core.Sequence{core.NewPayload(field("type", core.String("photo")), field("media", core.String("file-id")))}),
		field("reply_parameters", core.NewPayload(field("message_id", core.Int(3)))),
	)

	special, err := Format(payload, "sendMediaGroup")
	require.NoError(t, err)
	plain, err := Format(payload, "unknownMethod")
	require.NoError(t, err)

	assert.Equal(t, plain, special)
}

func TestFormat_TopLevelFilesPassThrough(t *testing.T) {
	doc := core.NewBytesFile("doc.pdf", []byte("pdf"))
	payload := core.NewPayload(
		field("chat_id", core.Int(1)),
		field("document", core.FileOf(doc)),
	)

	got, err := Format(payload, "sendDocument")
	require.NoError(t, err)

	assert.Equal(t, []string{"chat_id", "document"}, got.Keys())
	assert.Same(t, doc, fileField(t, got, "document"))
}

func TestFormat_DoesNotMutateInput(t *testing.T) {
	build := func(f1, f2 core.FileHandle) *core.Payload {
		return core.NewPayload(
			field("chat_id", core.Int(1)),
			field("media", core.Sequence{
				core.NewPayload(field("type", core.String("photo")), field("media", core.FileOf(f1))),
				core.NewPayload(field("type", core.String("photo")), field("media", core.FileOf(f2))),
			}),
			field("reply_markup", core.NewPayload(field("remove_keyboard", core.Bool(true)))),
		)
	}
	f1 := core.NewBytesFile("a", nil)
	f2 := core.NewBytesFile("b", nil)
	payload := build(f1, f2)
	snapshot := build(f1, f2)

	for _, method := range []string{"sendMediaGroup", "editMessageMedia", "sendMessage"} {
		_, err := Format(payload, method)
		require.NoError(t, err)
		assert.Equal(t, snapshot, payload, "method %s mutated its input", method)
	}
}

func TestFormat_ReferenceNamesRestartPerCall(t *testing.T) {
	payload := core.NewPayload(
		field("media", core.NewPayload(field("media", core.FileOf(core.NewBytesFile("a", nil))))),
	)

	for i := 0; i < 2; i++ {
		got, err := Format(payload, "editMessageMedia")
		require.NoError(t, err)
		assert.Equal(t, []string{"media", "_file0"}, got.Keys())
	}
}

func TestFormat_NilPayload(t *testing.T) {
	got, err := Format(nil, "sendMediaGroup")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestFormat_SerializationErrors(t *testing.T) {
	cyclic := core.NewPayload(field("type", core.String("photo")))
	cyclic.Set("self", cyclic)

	tests := []struct {
		name      string
		method    string
		payload   *core.Payload
		wantField string
		wantErr   error
	}{
		{
			name:   "file nested below extraction depth",
			method: "sendMediaGroup",
			payload: core.NewPayload(field("media", core.Sequence{
				core.NewPayload(field("extra", core.NewPayload(field("thumb", core.FileOf(core.NewBytesFile("t", nil)))))),
			})),
			wantField: "media[0].extra.thumb",
			wantErr:   ErrNestedFile,
		},
		{
			name:      "file inside untargeted structure",
			method:    "sendMessage",
			payload:   core.NewPayload(field("reply_markup", core.Sequence{core.FileOf(core.NewBytesFile("x", nil))})),
			wantField: "reply_markup[0]",
			wantErr:   ErrNestedFile,
		},
		{
			name:      "cyclic mapping",
			method:    "sendMessage",
			payload:   core.NewPayload(field("reply_markup", cyclic)),
			wantField: "reply_markup.self",
			wantErr:   ErrCyclicValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Format(tt.payload, tt.method)
			require.Error(t, err)

			var fe *core.FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, core.ErrorTypeSerialization, fe.Type)
			assert.Equal(t, tt.wantField, fe.Field)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestFormat_UnencodableScalar(t *testing.T) {
	payload := core.NewPayload(
		field("options", core.Sequence{core.Float(math.NaN())}),
	)

	_, err := Format(payload, "sendPoll")
	require.Error(t, err)
	assert.True(t, core.IsErrorType(err, core.ErrorTypeSerialization))

	var fe *core.FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "options[0]", fe.Field)
}

func TestRules(t *testing.T) {
	got := Rules()
	require.Len(t, got, 3)
	assert.Equal(t, Rule{Method: "sendMediaGroup", Field: "media", Kind: RuleExtractFromArray}, got[0])
	assert.Equal(t, Rule{Method: "editMessageMedia", Field: "media", Kind: RuleExtractAndMerge}, got[1])
	assert.Equal(t, Rule{Method: "postStory", Field: "content", Kind: RuleExtractAndMerge}, got[2])

	assert.True(t, HasRule("postStory"))
	assert.False(t, HasRule("sendmediagroup"))
	assert.False(t, HasRule(""))
}

func mustGet(t *testing.T, p *core.Payload, name string) core.Value {
	t.Helper()
	v, ok := p.Get(name)
	require.True(t, ok, "field %q missing", name)
	return v
}
