package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/coursedesk/core"
	"github.com/trezcool/coursedesk/core/cache"
	"github.com/trezcool/coursedesk/core/course"
	"github.com/trezcool/coursedesk/core/user"
)

var (
	// errors
	ErrNotFound  = errors.New("product not found")
	ErrForbidden = core.ErrForbidden

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		QueryProducts(ctx context.Context, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Product, error)
		GetProduct(ctx context.Context, id string, exec ...core.DBExecutor) (Product, error)
		CreateProduct(ctx context.Context, p Product, exec ...core.DBExecutor) (Product, error)
		UpdateProduct(ctx context.Context, p Product, exec ...core.DBExecutor) (Product, error)
		DeleteProduct(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// CourseFinder resolves the courses a product sells.
	CourseFinder interface {
		GetCourse(ctx context.Context, id string) (course.Course, error)
	}

	Service struct {
		repo    Repository
		courses CourseFinder
		cache   *cache.Cache
	}
)

func NewService(repo Repository, courses CourseFinder, c *cache.Cache) *Service {
	return &Service{repo: repo, courses: courses, cache: c}
}

func CanManage(actor user.User) bool { return actor.IsAdmin() }

func (svc *Service) Query(ctx context.Context, ordering []core.DBOrdering) ([]Product, error) {
	keys := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		keys = append(keys, ord.String())
	}
	key := "products:" + strings.Join(keys, ",")
	return cache.Fetch(svc.cache, key, []string{cache.GlobalTag(cache.KindProducts)}, func() ([]Product, error) {
		return svc.repo.QueryProducts(ctx, ordering)
	})
}

func (svc *Service) Get(ctx context.Context, id string) (Product, error) {
	tags := []string{cache.GlobalTag(cache.KindProducts), cache.IDTag(cache.KindProducts, id)}
	return cache.Fetch(svc.cache, "product:"+id, tags, func() (Product, error) {
		return svc.repo.GetProduct(ctx, id)
	})
}

func (svc *Service) Create(ctx context.Context, actor user.User, np NewProduct) (Product, error) {
	if !CanManage(actor) {
		return Product{}, ErrForbidden
	}
	if err := svc.checkCourses(ctx, np.CourseIDs); err != nil {
		return Product{}, err
	}
	now := NowFunc().UTC()
	p, err := svc.repo.CreateProduct(ctx, Product{
		Name:           np.Name,
		Description:    np.Description,
		ImageURL:       np.ImageURL,
		PriceInDollars: np.PriceInDollars,
		Status:         np.Status,
		CourseIDs:      np.CourseIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		return Product{}, errors.Wrap(err, "creating product")
	}
	svc.invalidate(p.ID)
	return p, nil
}

func (svc *Service) Update(ctx context.Context, actor user.User, id string, up UpdateProduct) (Product, error) {
	if !CanManage(actor) {
		return Product{}, ErrForbidden
	}
	p, err := svc.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err = svc.checkCourses(ctx, up.CourseIDs); err != nil {
		return Product{}, err
	}
	p.Name = up.Name
	p.Description = up.Description
	p.ImageURL = up.ImageURL
	p.PriceInDollars = up.PriceInDollars
	p.Status = up.Status
	p.CourseIDs = up.CourseIDs
	p.UpdatedAt = NowFunc().UTC()
	if p, err = svc.repo.UpdateProduct(ctx, p); err != nil {
		return Product{}, errors.Wrap(err, "updating product")
	}
	svc.invalidate(p.ID)
	return p, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	if !CanManage(actor) {
		return ErrForbidden
	}
	if err := svc.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	svc.invalidate(id)
	return nil
}

func (svc *Service) checkCourses(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return core.NewValidationError(nil, core.FieldError{Field: "course_ids", Error: "at least one course is required"})
	}
	for _, id := range ids {
		if _, err := svc.courses.GetCourse(ctx, id); err != nil {
			if errors.Cause(err) == course.ErrNotFound {
				msg := fmt.Sprintf("unknown course: %s", id)
				return core.NewValidationError(nil, core.FieldError{Field: "course_ids", Error: msg})
			}
			return errors.Wrap(err, "finding course")
		}
	}
	return nil
}

func (svc *Service) invalidate(id string) {
	svc.cache.InvalidateTags(cache.GlobalTag(cache.KindProducts), cache.IDTag(cache.KindProducts, id))
}
