// file: internal/adapter/datasource/sqlbuilder/update.go
package sqlbuilder

import (
	"strings"

	"Jobly/internal/core/port"
)

// Field 是一次部分更新中的单个字段及其新值。
type Field struct {
	Name  string
	Value any
}

// UpdateSet 是有序的字段更新集合，切片顺序即生成 SET 子句与参数的顺序。
type UpdateSet []Field

// Set 追加一个字段并返回新的集合，便于链式构造。
func (s UpdateSet) Set(name string, value any) UpdateSet {
	return append(s, Field{Name: name, Value: value})
}

// Names 按顺序返回集合中的字段名。
func (s UpdateSet) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// PartialUpdate 生成 UPDATE 语句的 SET 部分，占位符从 $1 开始。
//
//	{firstName: "Aria", age: 30} + {firstName: "first_name"}
//	=> `"first_name"=$1, "age"=$2`, ["Aria", 30]
func PartialUpdate(set UpdateSet, cols ColumnMap) (Fragment, error) {
	return PartialUpdateFrom(set, cols, 1)
}

// PartialUpdateFrom 与 PartialUpdate 相同，但占位符从 start 开始编号。
func PartialUpdateFrom(set UpdateSet, cols ColumnMap, start int) (Fragment, error) {
	if len(set) == 0 {
		return Fragment{}, port.DataError("更新数据为空 (no data)")
	}
	start = startOrDefault(start)

	seen := make(map[string]struct{}, len(set))
	assignments := make([]string, 0, len(set))
	args := make([]any, 0, len(set))
	for _, f := range set {
		if f.Name == "" {
			return Fragment{}, port.DataError("更新字段名不能为空")
		}
		if _, dup := seen[f.Name]; dup {
			return Fragment{}, port.DataError("更新字段 '%s' 重复出现", f.Name)
		}
		seen[f.Name] = struct{}{}

		args = append(args, f.Value)
		assignments = append(assignments, quoteIdent(cols.Column(f.Name))+"="+Placeholder(start+len(args)-1))
	}

	return Fragment{
		SQL:   strings.Join(assignments, ", "),
		Args:  args,
		Start: start,
	}, nil
}
