package repository

import (
	"strings"

	"gorm.io/gorm"
)

// SortSpec 排序参数（字段名为对外暴露的排序键，由各仓储白名单映射到列）
type SortSpec struct {
	Field string
	Desc  bool
}

// likeEscaper 转义 LIKE 通配符，搜索词按字面匹配
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(s)) + "%"
}

// searchAny 在多列上做不区分大小写的模糊匹配；空白搜索词不加条件
func searchAny(db *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return db
	}
	pattern := likePattern(search)
	conds := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		conds[i] = col + " ILIKE ?"
		args[i] = pattern
	}
	return db.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// orderBy 按白名单映射排序列，未知字段回退到 def；tieBreaker 保证分页稳定
func orderBy(db *gorm.DB, sort SortSpec, whitelist map[string]string, def, tieBreaker string) *gorm.DB {
	col, ok := whitelist[sort.Field]
	if !ok {
		col = whitelist[def]
	}
	dir := " ASC"
	if sort.Desc {
		dir = " DESC"
	}
	db = db.Order(col + dir)
	if tieBreaker != "" && col != tieBreaker {
		db = db.Order(tieBreaker + dir)
	}
	return db
}

// eqIfSet 非零值时追加等值条件
func eqIfSet[T comparable](db *gorm.DB, column string, v T) *gorm.DB {
	var zero T
	if v == zero {
		return db
	}
	return db.Where(column+" = ?", v)
}

// GroupCount 按 ID 分组计数
type GroupCount struct {
	ID    int64
	Count int64
}

// LabelCount 按文本分组计数
type LabelCount struct {
	Label string
	Count int64
}

func toCountMap(rows []GroupCount) map[int64]int64 {
	m := make(map[int64]int64, len(rows))
	for _, r := range rows {
		m[r.ID] = r.Count
	}
	return m
}
