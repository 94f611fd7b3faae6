package gemini

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// DefaultPrompt asks for a friendly Thai summary: key idea, bullet points,
// technical vocabulary and emoji.
const DefaultPrompt = "สรุปเนื้อหาสำคัญจากคำบรรยายนี้ให้เป็นภาษาไทยที่เข้าใจง่าย:\n" +
	"1. สรุปใจความสำคัญหลัก (Key Idea) ใน 1-2 ประโยค\n" +
	"2. อธิบายประเด็นสำคัญเป็นข้อๆ (Bullet points) 3-5 ข้อ\n" +
	"3. คำศัพท์เทคนิคที่ควรรู้ (ถ้ามี) พร้อมคำแปลและความหมายสั้นๆ\n" +
	"4. ใช้ภาษาที่เป็นกันเองและใช้ Emoji ประกอบให้น่าอ่าน"

// PromptSource supplies the instruction placed before the transcript.
type PromptSource interface {
	SystemPrompt(ctx context.Context) string
}

// StaticPrompt always returns itself, or DefaultPrompt when empty.
type StaticPrompt string

func (p StaticPrompt) SystemPrompt(context.Context) string {
	if p == "" {
		return DefaultPrompt
	}
	return string(p)
}

// FilePrompt reads {"systemPrompt": "..."} from a JSON file on every call so
// edits apply to the next summary. Any problem falls back to DefaultPrompt.
type FilePrompt struct {
	Path   string
	Logger *zap.Logger
}

type promptFile struct {
	SystemPrompt string `json:"systemPrompt"`
}

func (p FilePrompt) SystemPrompt(context.Context) string {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if p.Path == "" {
		return DefaultPrompt
	}

	raw, err := os.ReadFile(p.Path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("Failed to read prompt file, using default.", zap.String("path", p.Path), zap.Error(err))
		}
		return DefaultPrompt
	}

	var cfg promptFile
	if err := json.Unmarshal(raw, &cfg); err != nil {
		logger.Warn("Failed to parse prompt file, using default.", zap.String("path", p.Path), zap.Error(err))
		return DefaultPrompt
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		return DefaultPrompt
	}
	return cfg.SystemPrompt
}
