// Package tag はタグのドメインロジックを提供する。
//
// タグは初回参照時に遅延作成される共有リソースで、削除されることはない。
// 同名タグはシステム全体で高々1件しか存在しない。
package tag

import (
	"context"
	"fmt"

	"github.com/hitoshi/fritter/internal/model"
	"github.com/hitoshi/fritter/internal/repository"
)

// Service はタグのサービス層。
type Service struct {
	tagRepo repository.TagRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(tagRepo repository.TagRepository) *Service {
	return &Service{tagRepo: tagRepo}
}

// FindOrCreateMany はタグ名のリストを解決し、存在しないタグを作成する。
// 戻り値は入力の順序を保ち、入力1件につき1要素を返す。重複した名前は
// 同一のTagレコードを参照する（永続化されるTagは名前ごとに高々1件）。
// 形式が不正な名前が1つでも含まれる場合はINVALID_TAGのAPIErrorを返し、
// タグは一切作成しない。
func (s *Service) FindOrCreateMany(ctx context.Context, names []string) ([]model.Tag, error) {
	// 先に全件検証する。途中で失敗して一部だけ作成される事態を避ける。
	for _, name := range names {
		if !model.IsValidTagName(name) {
			return nil, model.NewInvalidTagError(name)
		}
	}

	resolved := make(map[string]model.Tag, len(names))
	tags := make([]model.Tag, 0, len(names))
	for _, name := range names {
		tag, ok := resolved[name]
		if !ok {
			found, err := s.tagRepo.FindOrCreate(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("タグの解決に失敗しました: %w", err)
			}
			tag = *found
			resolved[name] = tag
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

// FindByName はタグ名でタグを検索する。見つからない場合はnilを返す。
// 検索用途のため、存在しないタグを作成することはない。
func (s *Service) FindByName(ctx context.Context, name string) (*model.Tag, error) {
	if !model.IsValidTagName(name) {
		return nil, model.NewInvalidTagError(name)
	}
	tag, err := s.tagRepo.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("タグの検索に失敗しました: %w", err)
	}
	return tag, nil
}
