package repository

import (
	"strings"

	"gorm.io/gorm"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern 转义通配符后包成 %keyword%
func containsPattern(keyword string) string {
	return "%" + likeEscaper.Replace(keyword) + "%"
}

// likeOperator postgres 使用 ILIKE，其余方言 LIKE（sqlite 对 ASCII 本身不区分大小写）
func likeOperator(db *gorm.DB) string {
	if db != nil && db.Dialector != nil {
		switch strings.ToLower(db.Dialector.Name()) {
		case "postgres", "postgresql":
			return "ILIKE"
		}
	}
	return "LIKE"
}

// containsAnyClause 多列 OR 模糊匹配，返回条件与对应参数
func containsAnyClause(operator, keyword string, columns ...string) (string, []interface{}) {
	pattern := containsPattern(keyword)
	var sb strings.Builder
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		column = strings.TrimSpace(column)
		if column == "" {
			continue
		}
		if len(args) > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString(column + " " + operator + ` ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if len(args) == 0 {
		return "", nil
	}
	return "(" + sb.String() + ")", args
}

// whereContainsAny 关键字为空或无有效列时原样返回
func whereContainsAny(query *gorm.DB, keyword string, columns ...string) *gorm.DB {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return query
	}
	clause, args := containsAnyClause(likeOperator(query), keyword, columns...)
	if clause == "" {
		return query
	}
	return query.Where(clause, args...)
}
