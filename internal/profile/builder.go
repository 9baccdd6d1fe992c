package profile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/jobpilot/internal/gateway"
	"github.com/spigell/jobpilot/internal/store"
)

const (
	FileName          = "user_profile.txt"
	PositionsFileName = "ai_positions.txt"

	PurposeProfile   = "Profile Generation"
	PurposePositions = "Position Generation"
)

var ErrEmptyResume = errors.New("resume text is empty")

// Builder generates the profile and suggested job titles once and reuses the
// stored copies afterwards.
type Builder struct {
	gateway gateway.Invoker
	dir     string
	logger  *zap.Logger
}

func NewBuilder(invoker gateway.Invoker, workDir string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{gateway: invoker, dir: workDir, logger: logger}
}

func (b *Builder) ProfilePath() string {
	return filepath.Join(b.dir, FileName)
}

func (b *Builder) PositionsPath() string {
	return filepath.Join(b.dir, PositionsFileName)
}

// Build returns the stored profile when one exists, otherwise asks the model
// to merge the resume with the preferences and stores the result.
func (b *Builder) Build(ctx context.Context, resume string, prefs map[string]any) (Profile, error) {
	stored, err := readText(b.ProfilePath())
	if err != nil {
		return Profile{}, err
	}
	if stored != "" {
		b.logger.Info("loaded existing profile", zap.String("path", b.ProfilePath()))
		return New(stored), nil
	}

	if strings.TrimSpace(resume) == "" {
		return Profile{}, ErrEmptyResume
	}

	b.logger.Info("generating profile from resume and preferences")
	text, err := b.gateway.Invoke(ctx, profilePrompt(resume, FormatPreferences(prefs)), PurposeProfile)
	if err != nil {
		return Profile{}, fmt.Errorf("generate profile: %w", err)
	}

	p := New(text)
	if p.IsZero() {
		return Profile{}, errors.New("generate profile: model returned empty text")
	}

	if err := store.WriteFile(b.ProfilePath(), []byte(p.Text()+"\n")); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Positions returns job titles worth searching for. Stored titles are reused.
func (b *Builder) Positions(ctx context.Context, p Profile) ([]string, error) {
	stored, err := readText(b.PositionsPath())
	if err != nil {
		return nil, err
	}
	if stored != "" {
		b.logger.Info("loaded existing positions", zap.String("path", b.PositionsPath()))
		return splitLines(stored), nil
	}

	b.logger.Info("generating suggested job titles")
	text, err := b.gateway.Invoke(ctx, positionsPrompt(p.Text()), PurposePositions)
	if err != nil {
		return nil, fmt.Errorf("generate positions: %w", err)
	}

	positions := splitLines(text)
	if len(positions) == 0 {
		return nil, nil
	}

	if err := store.WriteFile(b.PositionsPath(), []byte(strings.Join(positions, "\n")+"\n")); err != nil {
		return nil, err
	}
	return positions, nil
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func profilePrompt(resume, prefs string) string {
	return "You are creating a 'Source of Truth' profile for a job applicant. " +
		"Combine the Resume Text and the User Preferences below.\n" +
		"CRITICAL: The User Preferences override any assumption from the resume about hard requirements (visa, relocation, etc).\n\n" +
		"--- CALCULATING EXPERIENCE ---\n" +
		"1. Total professional experience is the sum of the role durations in the resume (2015-2023 = 8 years). Do not use the preferences default for it.\n" +
		"2. Skill-specific experience comes from the resume. Only when the resume does not state it, use the preferences 'experience' section.\n" +
		"3. The preferences 'default' value applies only to skills missing from the resume, never to seniority.\n" +
		"------------------------------\n\n" +
		prefs + "\n\n" +
		"Resume Text:\n" + resume + "\n\n" +
		"Output a detailed professional profile including:\n" +
		"1. Professional Summary (third person, stating total years of experience computed from resume dates).\n" +
		"2. Hard Requirements Status (visa, driver's license, hybrid, etc.)\n" +
		"3. Education & GPA\n" +
		"4. Experience & Skills (total years first, then specific skills)"
}

func positionsPrompt(profile string) string {
	return "Based on this professional profile, list 10-15 relevant job search titles. " +
		"Return ONLY the titles, one per line, no bullet points.\n\nProfile:\n" + profile
}
