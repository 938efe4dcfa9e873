package loader

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"
)

const defaultPropertiesEncoding = "ISO-8859-1"

// extensions lists the resource variants tried per locale candidate, in
// preference order.
var extensions = []string{".toml", ".json", ".yaml", ".yml", ".properties"}

func (l *Loader) parseFile(filePath string) (map[string]string, error) {
	data, err := fs.ReadFile(l.fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("loader: reading %s: %w", filePath, err)
	}

	switch strings.ToLower(path.Ext(filePath)) {
	case ".toml":
		return parseStructured(filePath, data, toml.Unmarshal)
	case ".json":
		return parseStructured(filePath, data, json.Unmarshal)
	case ".yaml", ".yml":
		return parseStructured(filePath, data, yaml.Unmarshal)
	case ".properties":
		return l.parseProperties(filePath, data)
	default:
		return nil, fmt.Errorf("loader: unsupported bundle format %s", filePath)
	}
}

func parseStructured(filePath string, data []byte, unmarshal func([]byte, any) error) (map[string]string, error) {
	var raw map[string]any
	if err := unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("loader: parsing %s: %w", filePath, err)
	}
	return flatten(raw, ""), nil
}

// flatten collapses nested tables into dotted keys so a toml section
// [btn] ok = "OK" resolves as btn.ok.
func flatten(data map[string]any, prefix string) map[string]string {
	result := make(map[string]string, len(data))

	for key, value := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		switch v := value.(type) {
		case string:
			result[fullKey] = v
		case map[string]any:
			for nk, nv := range flatten(v, fullKey) {
				result[nk] = nv
			}
		case map[string]string:
			for nk, nv := range v {
				result[fullKey+"."+nk] = nv
			}
		default:
			result[fullKey] = fmt.Sprintf("%v", v)
		}
	}

	return result
}

// parseProperties reads a java-style properties file using the loader's
// configured text encoding.
func (l *Loader) parseProperties(filePath string, data []byte) (map[string]string, error) {
	decoded, err := decode(data, l.encoding)
	if err != nil {
		return nil, fmt.Errorf("loader: decoding %s as %s: %w", filePath, l.encoding, err)
	}

	values := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(decoded))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}

		sep := strings.IndexAny(line, "=:")
		if sep < 0 {
			continue
		}

		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])
		if key != "" {
			values[key] = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("loader: scanning %s: %w", filePath, err)
	}

	return values, nil
}

func decode(data []byte, encodingName string) (string, error) {
	enc, err := ianaindex.IANA.Encoding(encodingName)
	if err != nil {
		return "", err
	}
	if enc == nil || enc == unicode.UTF8 {
		return string(data), nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
