package domain

type Category string

const (
	CategoryMain     Category = "Main"
	CategoryStarter  Category = "Starter"
	CategoryBread    Category = "Bread"
	CategoryRice     Category = "Rice"
	CategoryDessert  Category = "Dessert"
	CategoryBeverage Category = "Beverage"
)

type MenuItem struct {
	ID          string
	Name        string
	Price       int64 // whole rupees
	Category    Category
	Description string
}

type Staff struct {
	ID   string
	Name string
}

var menu = []MenuItem{
	{ID: "1", Name: "Butter Chicken", Price: 320, Category: CategoryMain, Description: "Rich tomato gravy with cream and fenugreek."},
	{ID: "2", Name: "Paneer Tikka", Price: 240, Category: CategoryStarter, Description: "Grilled cottage cheese marinated in spices."},
	{ID: "3", Name: "Masala Dosa", Price: 180, Category: CategoryMain, Description: "Crispy fermented crepe stuffed with potato masala."},
	{ID: "4", Name: "Chole Bhature", Price: 150, Category: CategoryMain, Description: "Spicy chickpea curry with fried bread."},
	{ID: "5", Name: "Veg Biryani", Price: 210, Category: CategoryRice, Description: "Aromatic basmati rice cooked with vegetables and herbs."},
	{ID: "6", Name: "Chicken Biryani", Price: 260, Category: CategoryRice, Description: "Layers of marinated chicken and saffron-infused rice."},
	{ID: "7", Name: "Dal Makhani", Price: 170, Category: CategoryMain, Description: "Slow-cooked black lentils with butter and cream."},
	{ID: "8", Name: "Tandoori Roti", Price: 20, Category: CategoryBread, Description: "Whole wheat flatbread baked in a clay oven."},
	{ID: "9", Name: "Samosa (2 pcs)", Price: 50, Category: CategoryStarter, Description: "Fried pastry with spiced potato filling."},
	{ID: "10", Name: "Gulab Jamun", Price: 80, Category: CategoryDessert, Description: "Milk solids soaked in rose sugar syrup."},
	{ID: "11", Name: "Mango Lassi", Price: 90, Category: CategoryBeverage, Description: "Yogurt based mango drink."},
	{ID: "12", Name: "Rogan Josh", Price: 350, Category: CategoryMain, Description: "Aromatic lamb curry from Kashmir."},
}

var staff = []Staff{
	{ID: "s1", Name: "Rajesh Kumar"},
	{ID: "s2", Name: "Priya Singh"},
	{ID: "s3", Name: "Amit Patel"},
	{ID: "s4", Name: "Sneha Gupta"},
}

// Menu returns a copy of the fixed menu.
func Menu() []MenuItem {
	out := make([]MenuItem, len(menu))
	copy(out, menu)
	return out
}

func MenuItemByID(id string) (MenuItem, bool) {
	for _, m := range menu {
		if m.ID == id {
			return m, true
		}
	}
	return MenuItem{}, false
}

// StaffDirectory returns a copy of the waiting staff list.
func StaffDirectory() []Staff {
	out := make([]Staff, len(staff))
	copy(out, staff)
	return out
}

func StaffByID(id string) (Staff, bool) {
	for _, s := range staff {
		if s.ID == id {
			return s, true
		}
	}
	return Staff{}, false
}
