// file: internal/adapter/datasource/sqlbuilder/filter.go
package sqlbuilder

import (
	"fmt"
	"strings"

	"Jobly/internal/core/port"
)

// Op 是单个过滤条件的比较方式。
type Op uint8

const (
	// OpContains 大小写不敏感的子串匹配，值会被包裹为 %v%。
	OpContains Op = iota + 1
	// OpAtLeast 生成 col >= $n
	OpAtLeast
	// OpAtMost 生成 col <= $n
	OpAtMost
	// OpPositive 生成 col > 0，不占用参数
	OpPositive
)

// Criterion 是一个已经确定生效的过滤条件。
type Criterion struct {
	Column string
	Op     Op
	Value  any
}

// Criteria 是有序的过滤条件列表。下面的辅助方法会跳过未提供的值，
// 因此调用方可以按固定顺序无条件地串起所有可选过滤项。
type Criteria []Criterion

// Contains 在 v 非空时追加子串匹配条件。
func (c Criteria) Contains(column string, v *string) Criteria {
	if v == nil || *v == "" {
		return c
	}
	return append(c, Criterion{Column: column, Op: OpContains, Value: *v})
}

// AtLeast 在 v 非空时追加下界条件。
func (c Criteria) AtLeast(column string, v *int) Criteria {
	if v == nil {
		return c
	}
	return append(c, Criterion{Column: column, Op: OpAtLeast, Value: *v})
}

// AtMost 在 v 非空时追加上界条件。
func (c Criteria) AtMost(column string, v *int) Criteria {
	if v == nil {
		return c
	}
	return append(c, Criterion{Column: column, Op: OpAtMost, Value: *v})
}

// Positive 仅在 flag 为 true 时追加 col > 0；false 与缺省都不产生条件。
func (c Criteria) Positive(column string, flag *bool) Criteria {
	if flag == nil || !*flag {
		return c
	}
	return append(c, Criterion{Column: column, Op: OpPositive})
}

// Compose 把过滤条件组合成 WHERE 片段（不含 WHERE 关键字），占位符从 $1 开始。
// 没有任何条件时返回空片段。
func Compose(d Dialect, criteria Criteria) (Fragment, error) {
	return ComposeFrom(d, criteria, 1)
}

// ComposeFrom 与 Compose 相同，但占位符从 start 开始编号。
func ComposeFrom(d Dialect, criteria Criteria, start int) (Fragment, error) {
	start = startOrDefault(start)
	if err := checkRanges(criteria); err != nil {
		return Fragment{}, err
	}

	terms := make([]string, 0, len(criteria))
	args := make([]any, 0, len(criteria))
	for _, c := range criteria {
		if c.Column == "" {
			return Fragment{}, port.DataError("过滤条件缺少列名")
		}
		col := quoteIdent(c.Column)

		switch c.Op {
		case OpContains:
			s, ok := c.Value.(string)
			if !ok {
				return Fragment{}, port.DataError("列 '%s' 的模糊匹配值必须是字符串", c.Column)
			}
			args = append(args, "%"+escapeLike(s)+"%")
			terms = append(terms, fmt.Sprintf(`%s %s %s ESCAPE '\'`, col, d.likeOperator(), Placeholder(start+len(args)-1)))
		case OpAtLeast:
			args = append(args, c.Value)
			terms = append(terms, col+" >= "+Placeholder(start+len(args)-1))
		case OpAtMost:
			args = append(args, c.Value)
			terms = append(terms, col+" <= "+Placeholder(start+len(args)-1))
		case OpPositive:
			terms = append(terms, col+" > 0")
		default:
			return Fragment{}, port.DataError("列 '%s' 使用了不支持的过滤方式: %d", c.Column, c.Op)
		}
	}

	return Fragment{
		SQL:   strings.Join(terms, " AND "),
		Args:  args,
		Start: start,
	}, nil
}

// checkRanges 拒绝同一列上下界倒置的区间，这样的条件永远不会匹配任何行。
func checkRanges(criteria Criteria) error {
	lower := make(map[string]float64)
	upper := make(map[string]float64)
	var order []string

	for _, c := range criteria {
		if c.Op != OpAtLeast && c.Op != OpAtMost {
			continue
		}
		v, ok := toFloat(c.Value)
		if !ok {
			return port.DataError("列 '%s' 的区间值必须是数字", c.Column)
		}
		_, seenLo := lower[c.Column]
		_, seenHi := upper[c.Column]
		if !seenLo && !seenHi {
			order = append(order, c.Column)
		}
		if c.Op == OpAtLeast {
			lower[c.Column] = v
		} else {
			upper[c.Column] = v
		}
	}

	for _, col := range order {
		lo, hasLo := lower[col]
		hi, hasHi := upper[col]
		if hasLo && hasHi && lo > hi {
			return port.DataError("列 '%s' 的区间下限 %v 大于上限 %v", col, lo, hi)
		}
	}
	return nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
