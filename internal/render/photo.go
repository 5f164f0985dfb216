package render

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// PhotoDataURI 把头像字节内联为 data URI，供模板直接嵌入。
// MIME 类型从字节嗅探，嗅探不出图片类型时返回空串（模板会跳过头像区块）。
func PhotoDataURI(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	mimeType := http.DetectContentType(data)
	if !strings.HasPrefix(mimeType, "image/") {
		return ""
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
