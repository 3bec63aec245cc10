package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shuttle/internal/ipc"
)

func buildCatalogStatusRows(stats map[string]int) [][]string {
	if len(stats) == 0 {
		return nil
	}
	keys := make([]string, 0, len(stats))
	for key := range stats {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []string{formatStatusLabel(key), fmt.Sprintf("%d", stats[key])})
	}
	return rows
}

func buildImportsRows(items []ipc.Acquisition) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]ipc.Acquisition, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		ti := parseListTime(sorted[i].CreatedAt)
		tj := parseListTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, item := range sorted {
		name := strings.TrimSpace(item.AssetName)
		if name == "" {
			if source := strings.TrimSpace(item.AssetPath); source != "" {
				name = filepath.Base(source)
			} else {
				name = "Unknown"
			}
		}
		detail := strings.TrimSpace(item.ErrorMessage)
		if detail == "" && item.AlreadyExisted {
			detail = "already imported"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", item.ID),
			name,
			formatStatusLabel(item.AssetType),
			formatStatusLabel(item.Status),
			formatDisplayTime(item.CreatedAt),
			detail,
		})
	}
	return rows
}

func buildHistoryRows(entries []ipc.HistoryEntry) [][]string {
	if len(entries) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		name := strings.TrimSpace(entry.AssetName)
		if name == "" {
			name = filepath.Base(entry.AssetPath)
		}
		imported := ""
		if entry.ImportTimestampEpochMs > 0 {
			imported = time.UnixMilli(entry.ImportTimestampEpochMs).UTC().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			name,
			formatStatusLabel(entry.AssetType),
			imported,
			entry.AssetPath,
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC().Format("2006-01-02 15:04")
	}
	return value
}

func parseListTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
