package database

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"cvforge/internal/resume"
)

// User 表示系统中的账号信息。
type User struct {
	gorm.Model
	Username           string   `gorm:"uniqueIndex;size:64"`
	PasswordHash       string   `gorm:"size:255"`
	MustChangePassword bool     `gorm:"default:false"`
	ActiveResumeID     *uint    `gorm:"index"`
	Resumes            []Resume `gorm:"constraint:OnDelete:CASCADE"`
}

// Resume 表示用户创建的简历。
// Content 存结构化的 resume.Data；发布后 Slug+IsPublic 决定公开访问，
// TemplateID 与 Customization 决定渲染外观。
type Resume struct {
	gorm.Model
	Title            string         `gorm:"size:255"`
	Content          datatypes.JSON `gorm:"type:jsonb"`
	UserID           uint           `gorm:"index"`
	User             User           `gorm:"constraint:OnDelete:CASCADE"`
	Slug             string         `gorm:"size:128;index"`
	IsPublic         bool           `gorm:"default:false"`
	TemplateID       string         `gorm:"size:32;default:classic"`
	Customization    datatypes.JSON `gorm:"type:jsonb"`
	PreviewImageURL  string         `gorm:"size:1024"`
	PreviewObjectKey string         `gorm:"size:512"`
	DownloadCount    int64          `gorm:"default:0"`
	Status           string         `gorm:"size:32"`
}

// Asset 表示用户上传到 MinIO 的头像等资源。
type Asset struct {
	gorm.Model
	UserID    uint   `gorm:"index"`
	ObjectKey string `gorm:"size:512;uniqueIndex"`
	MIMEType  string `gorm:"size:64"`
	SizeBytes int64
}

// DecodeContent 反序列化 Content JSONB。空内容返回零值 Data。
func (r *Resume) DecodeContent() (resume.Data, error) {
	var data resume.Data
	if len(r.Content) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(r.Content, &data); err != nil {
		return data, fmt.Errorf("decode resume content: %w", err)
	}
	return data, nil
}

// DecodeCustomization 反序列化 Customization JSONB，空值回退默认样式。
func (r *Resume) DecodeCustomization() resume.Customization {
	if len(r.Customization) == 0 {
		return resume.DefaultCustomization()
	}
	var c resume.Customization
	if err := json.Unmarshal(r.Customization, &c); err != nil {
		return resume.DefaultCustomization()
	}
	if c.AccentColor == "" {
		return resume.DefaultCustomization()
	}
	return c
}
