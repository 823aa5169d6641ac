// Package sqlbuilder 负责把调用方给出的部分字段/可选过滤条件安全地转换为带位置占位符的 SQL 片段。
// 所有值只进入参数列表，片段文本中只出现加引号的列名与 $n 占位符。
package sqlbuilder

import (
	"strconv"
	"strings"
)

// Fragment 是一段 SQL 文本及与其占位符一一对应的参数。
// 占位符编号从 Start 开始连续递增，数量等于 len(Args)。
type Fragment struct {
	SQL   string
	Args  []any
	Start int
}

// Empty 报告片段是否没有任何内容（例如没有任何过滤条件生效）。
func (f Fragment) Empty() bool {
	return f.SQL == ""
}

// Next 返回片段之后第一个可用的占位符编号，用于在片段后继续追加参数。
func (f Fragment) Next() int {
	return startOrDefault(f.Start) + len(f.Args)
}

// Where 在片段非空时返回 " WHERE <片段>"，否则返回空串。
func (f Fragment) Where() string {
	if f.Empty() {
		return ""
	}
	return " WHERE " + f.SQL
}

// ColumnMap 把逻辑字段名映射为物理列名；未出现的字段按原名作为列名。
type ColumnMap map[string]string

// Column 解析逻辑字段对应的列名。
func (m ColumnMap) Column(field string) string {
	if col, ok := m[field]; ok && col != "" {
		return col
	}
	return field
}

// Dialect 标识目标数据库的 SQL 方言。两种方言都使用 $n 占位符，只在模糊匹配运算符上有差异。
type Dialect uint8

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

// likeOperator 返回大小写不敏感的模式匹配运算符。
// SQLite 的 LIKE 对 ASCII 字符本身就是大小写不敏感的。
func (d Dialect) likeOperator() string {
	if d == SQLite {
		return "LIKE"
	}
	return "ILIKE"
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Placeholder 返回第 n 个位置占位符，例如 $3。
func Placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

func startOrDefault(start int) int {
	if start < 1 {
		return 1
	}
	return start
}

// escapeLike 转义 LIKE 模式中的通配符，使用户输入按字面匹配。
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}
