package service

import (
	"fmt"

	"github.com/bakehouse-next/internal/models"
	"github.com/bakehouse-next/internal/repository"

	"github.com/shopspring/decimal"
)

// ResolutionMode 目录解析模式
type ResolutionMode int

const (
	// ResolutionStrict 任一行失败即整体失败（下单）
	ResolutionStrict ResolutionMode = iota
	// ResolutionLenient 失败行跳过并记录警告（购物车预览）
	ResolutionLenient
)

// 解析警告类型
const (
	WarningProductUnavailable = "product_unavailable"
	WarningVariantUnavailable = "variant_unavailable"
	WarningAddonUnavailable   = "addon_unavailable"
)

// AddonSelection 加料选择
type AddonSelection struct {
	AddonID uint
	Note    string
}

// CartLineInput 购物车行输入
type CartLineInput struct {
	ProductID uint
	VariantID uint
	Quantity  int
	Addons    []AddonSelection
	Note      string
}

// ResolvedAddon 已解析加料（价格快照）
type ResolvedAddon struct {
	AddonID   uint            `json:"addon_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"-"`
	Note      string          `json:"note,omitempty"`
}

// ResolvedLine 已解析订单行，LineTotal 为未取整的全精度值
type ResolvedLine struct {
	LineIndex   int
	ProductID   uint
	ProductName string
	VariantID   *uint
	VariantName string
	BasePrice   decimal.Decimal
	Addons      []ResolvedAddon
	UnitPrice   decimal.Decimal
	Quantity    int
	LineTotal   decimal.Decimal
	Note        string
}

// ResolutionWarning 宽松模式下被跳过的行
type ResolutionWarning struct {
	LineIndex int    `json:"line_index"`
	ProductID uint   `json:"product_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

// CatalogResolution 解析结果
type CatalogResolution struct {
	Lines    []ResolvedLine
	Warnings []ResolutionWarning
}

// CatalogResolver 将购物车行解析为权威价格
type CatalogResolver struct {
	productRepo repository.ProductRepository
	addonRepo   repository.AddonRepository
}

// NewCatalogResolver 创建目录解析器
func NewCatalogResolver(productRepo repository.ProductRepository, addonRepo repository.AddonRepository) *CatalogResolver {
	return &CatalogResolver{productRepo: productRepo, addonRepo: addonRepo}
}

type lineFailure struct {
	kind     string
	sentinel error
	message  string
}

func (f *lineFailure) err() error {
	return fmt.Errorf("%w: %s", f.sentinel, f.message)
}

type resolveSession struct {
	resolver *CatalogResolver
	products map[uint]*models.Product
	globals  map[uint]*models.Addon
}

// Resolve 解析购物车行。输入格式错误在两种模式下都直接返回 ValidationError。
func (r *CatalogResolver) Resolve(lines []CartLineInput, mode ResolutionMode) (*CatalogResolution, error) {
	if err := validateCartLines(lines); err != nil {
		return nil, err
	}
	session := &resolveSession{
		resolver: r,
		products: make(map[uint]*models.Product),
		globals:  make(map[uint]*models.Addon),
	}
	result := &CatalogResolution{
		Lines:    make([]ResolvedLine, 0, len(lines)),
		Warnings: make([]ResolutionWarning, 0),
	}
	for idx, line := range lines {
		resolved, failure, err := session.resolveLine(idx, line)
		if err != nil {
			return nil, err
		}
		if failure != nil {
			if mode == ResolutionStrict {
				return nil, failure.err()
			}
			result.Warnings = append(result.Warnings, ResolutionWarning{
				LineIndex: idx,
				ProductID: line.ProductID,
				Kind:      failure.kind,
				Message:   failure.message,
			})
			continue
		}
		result.Lines = append(result.Lines, *resolved)
	}
	return result, nil
}

func validateCartLines(lines []CartLineInput) error {
	if len(lines) == 0 {
		return newValidationError("items", "must not be empty")
	}
	for idx, line := range lines {
		if line.ProductID == 0 {
			return newValidationError(fmt.Sprintf("items[%d].product_id", idx), "is required")
		}
		if line.Quantity < 1 {
			return newValidationError(fmt.Sprintf("items[%d].quantity", idx), "must be at least 1")
		}
		for addonIdx, addon := range line.Addons {
			if addon.AddonID == 0 {
				return newValidationError(fmt.Sprintf("items[%d].addons[%d]", idx, addonIdx), "addon_id is required")
			}
		}
	}
	return nil
}

func (s *resolveSession) product(id uint) (*models.Product, error) {
	if product, ok := s.products[id]; ok {
		return product, nil
	}
	product, err := s.resolver.productRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.products[id] = product
	return product, nil
}

func (s *resolveSession) globalAddon(id uint) (*models.Addon, error) {
	if addon, ok := s.globals[id]; ok {
		return addon, nil
	}
	addon, err := s.resolver.addonRepo.GetGlobalByID(id)
	if err != nil {
		return nil, err
	}
	s.globals[id] = addon
	return addon, nil
}

func (s *resolveSession) resolveLine(idx int, line CartLineInput) (*ResolvedLine, *lineFailure, error) {
	product, err := s.product(line.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if product == nil || !product.IsActive {
		return nil, &lineFailure{
			kind:     WarningProductUnavailable,
			sentinel: ErrProductUnavailable,
			message:  fmt.Sprintf("product %d is not available", line.ProductID),
		}, nil
	}

	resolved := &ResolvedLine{
		LineIndex:   idx,
		ProductID:   product.ID,
		ProductName: product.Name,
		BasePrice:   product.BasePrice.Decimal,
		Quantity:    line.Quantity,
		Note:        line.Note,
	}
	if line.VariantID != 0 {
		variant := product.FindVariant(line.VariantID)
		if variant == nil || !variant.IsActive {
			return nil, &lineFailure{
				kind:     WarningVariantUnavailable,
				sentinel: ErrVariantUnavailable,
				message:  fmt.Sprintf("variant %d of %s is not available", line.VariantID, product.Name),
			}, nil
		}
		variantID := variant.ID
		resolved.VariantID = &variantID
		resolved.VariantName = variant.Name
		resolved.BasePrice = variant.Price.Decimal
	}

	unitPrice := resolved.BasePrice
	resolved.Addons = make([]ResolvedAddon, 0, len(line.Addons))
	for _, selection := range line.Addons {
		addon := product.FindAddon(selection.AddonID)
		if addon == nil {
			addon, err = s.globalAddon(selection.AddonID)
			if err != nil {
				return nil, nil, err
			}
		}
		if addon == nil || !addon.IsActive {
			return nil, &lineFailure{
				kind:     WarningAddonUnavailable,
				sentinel: ErrAddonUnavailable,
				message:  fmt.Sprintf("addon %d is not available for %s", selection.AddonID, product.Name),
			}, nil
		}
		resolved.Addons = append(resolved.Addons, ResolvedAddon{
			AddonID:   addon.ID,
			Name:      addon.Name,
			UnitPrice: addon.Price.Decimal,
			Note:      selection.Note,
		})
		unitPrice = unitPrice.Add(addon.Price.Decimal)
	}
	resolved.UnitPrice = unitPrice
	resolved.LineTotal = unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
	return resolved, nil, nil
}
