package models

import (
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
)

// DefaultSourceQuery 数据源默认查询语句
// %d 为记录数上限
const DefaultSourceQuery = `select * from "data" order by date_received desc limit %d`

// DefaultQueryLimit 每个数据源默认拉取的记录数
const DefaultQueryLimit = 200

var validate = validator.New()

// SourceDescriptor 数据源描述(一个市政DA数据源)
// 运行期间不可变
type SourceDescriptor struct {
	// Name 数据源名称,同时用作下载文件名前缀
	Name string `mapstructure:"name" yaml:"name" json:"name" validate:"required"`

	// Endpoint 查询接口地址 (如 morph.io data.json)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint" validate:"required,url,startswith=http"`

	// Credential 访问凭据 (可选)
	Credential string `mapstructure:"credential" yaml:"credential" json:"-"`

	// CredentialEnv 存放凭据的环境变量名 (可选, Credential为空时使用)
	CredentialEnv string `mapstructure:"credential_env" yaml:"credential_env" json:"credential_env,omitempty"`
}

// Validate 校验数据源描述
func (s SourceDescriptor) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ConfigError{FilePath: "sources[" + s.Name + "]", Cause: err}
	}
	return nil
}

// ResolveCredential 返回生效的凭据
// 优先级: Credential > CredentialEnv指向的环境变量 > 空
func (s SourceDescriptor) ResolveCredential() string {
	if s.Credential != "" {
		return s.Credential
	}
	if s.CredentialEnv != "" {
		return os.Getenv(s.CredentialEnv)
	}
	return ""
}

// Record 一条DA记录
// 可选字段为空字符串即表示缺失
type Record struct {
	Reference   string
	Address     string
	Description string
	DetailURL   string
}

// DisplayAddress 返回用于展示的地址
// 回退顺序: address → description → 空
func (r Record) DisplayAddress() string {
	if addr := strings.TrimSpace(r.Address); addr != "" {
		return addr
	}
	return strings.TrimSpace(r.Description)
}

// HasDetailURL 是否存在详情页
func (r Record) HasDetailURL() bool {
	return strings.TrimSpace(r.DetailURL) != ""
}
